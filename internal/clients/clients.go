package clients

import (
	"fmt"
	"os"
)

// FromEnv creates the client for platform, reading optional credentials from
// <PLATFORM>_API_KEY and <PLATFORM>_API_SECRET, or HYPERLIQUID_PRIVATE_KEY and HYPERLIQUID_API_URL.
func FromEnv(platform string) (any, error) {
	switch platform {
	case "binance":
		return NewBinanceClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET")), nil
	case "bybit":
		return NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET")), nil
	case "hyperliquid":
		return NewHyperliquidInfo(os.Getenv("HYPERLIQUID_PRIVATE_KEY"), os.Getenv("HYPERLIQUID_API_URL"))
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}
