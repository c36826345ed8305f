// Package setup is the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/scalpscan/config"
)

// DefaultPath file the wizard writes.
const DefaultPath = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	platform     string
	quote        string
	universeSize string
	concurrency  string
	scanInterval string
	chatIDs      string
	httpAddr     string
}

func defaultAnswers() answers {
	return answers{
		platform:     config.PlatformBinance,
		quote:        "USDT",
		universeSize: "50",
		concurrency:  "4",
		scanInterval: "5m",
		httpAddr:     ":8080",
	}
}

// RunTUI launches the terminal configuration wizard and returns the path of the saved config.
func RunTUI() (string, error) {
	a := defaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("SCALPSCAN CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's find some scalps.\n"))

	fmt.Println(stepStyle.Render("STEP 1: EXCHANGE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select exchange to scan").
				Options(
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
					huh.NewOption("Hyperliquid (USDC perps)", config.PlatformHyperliquid),
				).
				Value(&a.platform),
		),
	).Run()
	if err != nil {
		return "", err
	}
	a.quote = quoteFor(a.platform, a.quote)

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SCALPSCAN CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: UNIVERSE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Quote currency").
				Description("Pairs quoted in this asset are scanned (e.g. USDT)").
				Value(&a.quote).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("quote cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Universe size").
				Description("Top pairs by 24h volume (e.g. 50)").
				Value(&a.universeSize).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Concurrency").
				Description("Pairs evaluated in parallel (e.g. 4)").
				Value(&a.concurrency).
				Validate(validatePositiveInt),
		),
	).Run()
	if err != nil {
		return "", err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SCALPSCAN CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: TIMING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Scan Interval").
				Description("Duration string (e.g. 1m, 5m); the universe is refreshed hourly").
				Value(&a.scanInterval).
				Validate(func(s string) error {
					d, err := time.ParseDuration(s)
					if err != nil {
						return err
					}
					if d <= 0 || d > time.Hour {
						return fmt.Errorf("must be between 0 and 1h")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return "", err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SCALPSCAN CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: ALERTS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram chat IDs").
				Description("Comma separated, receive scheduled alerts; TELEGRAM_BOT_TOKEN must be set").
				Value(&a.chatIDs).
				Validate(func(s string) error {
					_, err := parseChatIDs(s)
					return err
				}),
			huh.NewInput().
				Title("HTTP address").
				Description("On-demand scans and result stream, empty to disable").
				Value(&a.httpAddr),
		),
	).Run()
	if err != nil {
		return "", err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SCALPSCAN CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Exchange: %s\nQuote: %s\nUniverse: top %s\nConcurrency: %s\nInterval: %s\nChats: %s\nHTTP: %s\n",
		a.platform, a.quote, a.universeSize, a.concurrency, a.scanInterval, a.chatIDs, a.httpAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return "", err
	}

	if !confirm {
		return "", fmt.Errorf("setup cancelled by user")
	}

	cfgTmp, err := buildConfig(a)
	if err != nil {
		return "", err
	}
	if err := writeConfig(DefaultPath, cfgTmp); err != nil {
		return "", err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting scanner...", DefaultPath)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return DefaultPath, nil
}

func buildConfig(a answers) (config.ConfigTmp, error) {
	interval, err := time.ParseDuration(a.scanInterval)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("invalid scan interval: %w", err)
	}
	ids, err := parseChatIDs(a.chatIDs)
	if err != nil {
		return config.ConfigTmp{}, err
	}

	return config.ConfigTmp{
		Platform:        a.platform,
		Quote:           strings.ToUpper(strings.TrimSpace(a.quote)),
		UniverseSizeStr: strings.TrimSpace(a.universeSize),
		ConcurrencyStr:  strings.TrimSpace(a.concurrency),
		ScanInterval:    interval,
		Telegram:        config.TelegramTmp{ChatIDs: ids},
		HTTP:            config.HTTPTmp{Addr: strings.TrimSpace(a.httpAddr)},
		Console:         true,
	}, nil
}

func writeConfig(path string, c config.ConfigTmp) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// quoteFor switches the default quote to USDC for Hyperliquid, the only quote it lists.
func quoteFor(platform, quote string) string {
	if platform == config.PlatformHyperliquid && quote == defaultAnswers().quote {
		return "USDC"
	}
	return quote
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func parseChatIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
