// Package web exposes scans over HTTP: on-demand scans, a stream of scheduled results,
// a health check and the Telegram webhook endpoint.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/scalpscan/internal/domain"
	"github.com/vadiminshakov/scalpscan/internal/services/report"
	"github.com/vadiminshakov/scalpscan/internal/services/scanner"
	"github.com/vadiminshakov/scalpscan/internal/services/universe"
)

const (
	resultPollInterval = 2 * time.Second
	defaultScanTimeout = 2 * time.Minute
)

type resultReader interface {
	ResultsAfter(index uint64) ([]ResultRecord, error)
}

type scanRunner interface {
	ScanNow(ctx context.Context) (domain.ScanResult, error)
	Scanning() bool
	Universe() domain.Universe
}

// Server exposes HTTP endpoints for on-demand scans and an SSE stream of scheduled results.
type Server struct {
	Addr        string
	Results     resultReader
	Scanner     scanRunner
	WebhookPath string
	Webhook     http.Handler
	ScanTimeout time.Duration
	l           *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, results resultReader, sc scanRunner, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Addr: addr, Results: results, Scanner: sc, ScanTimeout: defaultScanTimeout, l: l}
}

// MountWebhook serves h at path, used for Telegram webhook updates.
func (s *Server) MountWebhook(path string, h http.Handler) {
	s.WebhookPath = "/" + strings.TrimPrefix(path, "/")
	s.Webhook = h
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/scan", s.handleScan)
	mux.HandleFunc("/scan/stream", s.handleResultStream)
	if s.Webhook != nil && s.WebhookPath != "" {
		mux.Handle(s.WebhookPath, s.Webhook)
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("http server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
// Telegram only delivers webhooks over HTTPS.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	// shutdown both servers when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Warn("http (acme) server shutdown error", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Warn("https server shutdown error", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("http (acme) server error", zap.Error(err))
		}
	}()

	s.l.Info("https server listening", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := struct {
		Status   string `json:"status"`
		Scanning bool   `json:"scanning"`
		Pairs    int    `json:"pairs"`
	}{Status: "ok"}
	if s.Scanner != nil {
		status.Scanning = s.Scanner.Scanning()
		status.Pairs = len(s.Scanner.Universe())
	}
	writeJSON(w, http.StatusOK, status)
}

type scanResponse struct {
	Result   domain.ScanResult `json:"result"`
	Message  string            `json:"message"`
	Position *report.Position  `json:"position,omitempty"`
}

// handleScan runs an on-demand scan. An optional amount query parameter adds position sizing.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not available")
		return
	}

	var amount decimal.Decimal
	if raw := r.URL.Query().Get("amount"); raw != "" {
		a, err := report.ParseAmount(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		amount = a
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.ScanTimeout)
	defer cancel()

	res, err := s.Scanner.ScanNow(ctx)
	if err != nil {
		s.l.Warn("on-demand scan failed", zap.Error(err))
		writeError(w, scanErrorStatus(err), err.Error())
		return
	}

	resp := scanResponse{Result: res, Message: report.NoneMessage}
	if res.Found() {
		resp.Message = fmt.Sprintf("%s at %s", res.Best.Pair, res.Best.Price)
		if amount.IsPositive() {
			pos, err := report.NewPosition(*res.Best, amount)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			resp.Position = &pos
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResultStream(w http.ResponseWriter, r *http.Request) {
	if s.Results == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "result stream not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// send a comment heartbeat every 20s so proxies keep connection
	heartbeat := time.NewTicker(20 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(resultPollInterval)
	defer pollTicker.Stop()

	lastIndex := parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	sendResults := func() error {
		records, err := s.Results.ResultsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Result)
			if err != nil {
				return err
			}
			event := "none"
			if record.Result.Found() {
				event = "opportunity"
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: %s\n", event)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendResults(); err != nil {
		http.Error(w, "failed to load results", http.StatusInternalServerError)
		s.l.Warn("result stream initial load", zap.Error(err))
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendResults(); err != nil {
				s.l.Warn("result stream poll", zap.Error(err))
			}
		}
	}
}

// parseLastEventID extracts an SSE event ID from either the Last-Event-ID header or a query parameter.
// The header is preferred.
func parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// scanErrorStatus maps a failed scan to 503 while there is nothing to scan yet and to 502 for exchange failures.
func scanErrorStatus(err error) int {
	if errors.Is(err, scanner.ErrEmptyUniverse) || errors.Is(err, universe.ErrUniverseBuild) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>scalpscan</title>
  <style>
    body { font-family: 'Space Mono', monospace; margin: 2rem; background: #f6f6f6; color: #111; }
    pre { background: #fff; border: 2px solid #111; padding: 1rem; white-space: pre-wrap; }
    .none { color: #9c9c9c; }
  </style>
</head>
<body>
  <h1>scalpscan</h1>
  <p><a href="/scan">run a scan now</a></p>
  <div id="results"></div>
  <script>
    const results = document.getElementById('results');
    const es = new EventSource('/scan/stream');
    const render = (cls) => (e) => {
      const r = JSON.parse(e.data);
      const pre = document.createElement('pre');
      pre.className = cls;
      pre.textContent = r.best
        ? r.finished_at + '  ' + r.best.pair + '  price ' + r.best.price + '  tp ' + r.best.take_profit + '  sl ' + r.best.stop_loss + '  score ' + r.best.score.toFixed(2)
        : r.finished_at + '  no opportunity';
      results.prepend(pre);
    };
    es.addEventListener('opportunity', render('found'));
    es.addEventListener('none', render('none'));
  </script>
</body>
</html>
`
