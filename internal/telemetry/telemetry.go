/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a tiny, privacy-respecting, opt-in event sender
// for anonymous usage metrics and optional crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "drawdoc/internal/log"
	"drawdoc/internal/undo"
	"drawdoc/internal/version"

	"github.com/google/uuid"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt‑in and disabled by default.
//
// Environment variables (read by FromEnv):
// - DRAWDOC_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - DRAWDOC_TELEMETRY_URL: base URL to POST JSON events to (e.g., https://example.com/telemetry)
// - DRAWDOC_CRASH_UPLOAD_URL: URL to POST crash reports to
// - DRAWDOC_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - DRAWDOC_TELEMETRY_DEBUG: if set, logs event send attempts
//
// If no URLs are set, events are dropped (no‑ops), even if opt‑in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	optIn := parseBool(os.Getenv("DRAWDOC_TELEMETRY_OPT_IN"))
	cfg := Config{
		OptIn:        optIn,
		EventsURL:    strings.TrimSpace(os.Getenv("DRAWDOC_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("DRAWDOC_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("DRAWDOC_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("DRAWDOC_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client is a minimal async sender; it drops events silently on errors.
// It never blocks the UI; channel is bounded.
type Client struct {
	cfg     Config
	session string
	log     *slog.Logger
	cli     *http.Client
	q       chan any
	once    sync.Once
	closed  chan struct{}
	pending atomic.Int64 // queued plus in-flight sends
}

var defaultClient *Client
var defaultOnce sync.Once

// InitDefault initializes the package‑level default client from env when first used.
func InitDefault() {
	defaultOnce.Do(func() {
		defaultClient = New(FromEnv())
	})
}

// NewDefault creates and installs the default client with cfg. Later
// InitDefault calls keep it.
func NewDefault(cfg Config) {
	defaultOnce.Do(func() {})
	defaultClient = New(cfg)
}

// Default returns the package-level client, creating it from env if needed.
func Default() *Client {
	InitDefault()
	return defaultClient
}

// New constructs a client.
func New(cfg Config) *Client {
	l := applog.WithComponent("telemetry")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:     cfg,
		session: uuid.NewString(),
		log:     l,
		cli:     &http.Client{Timeout: cfg.Timeout},
		q:       make(chan any, 64),
		closed:  make(chan struct{}),
	}
	go c.loop()
	return c
}

// Session returns the random per-process id attached to every event. It is
// not derived from the machine or the user.
func (c *Client) Session() string { return c.session }

// Enabled reports whether anonymous telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether anonymous telemetry is enabled using the default client.
func Enabled() bool {
	InitDefault()
	return defaultClient.Enabled()
}

// Event posts a small JSON event if enabled. Safe to call from anywhere.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"session": c.session,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		// best‑effort shallow copy, props must be non‑PII
		payload[k] = v
	}
	c.pending.Add(1)
	select {
	case c.q <- payload:
	default:
		// drop if queue full
		c.pending.Add(-1)
	}
}

// Event using default client.
func Event(name string, props map[string]any) { InitDefault(); defaultClient.Event(name, props) }

// Flush waits until queued and in-flight events are sent, at most 500ms or
// until ctx ends.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for c.pending.Load() > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops background goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			buf, err := json.Marshal(item)
			if err == nil {
				c.post(c.cfg.EventsURL, "application/json", buf, "event")
			}
			c.pending.Add(-1)
		}
	}
}

// post sends one body and reports the outcome only when debug logging is on.
func (c *Client) post(url, contentType string, body []byte, what string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Drawdoc-Session", c.session)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry "+what+" failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry "+what+" sent", slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts an already-serialized crash report to the configured
// crash URL if opt-in. It does not wait for the upload.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.pending.Add(1)
	go func(b []byte) {
		defer c.pending.Add(-1)
		c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b, "crash upload")
	}(append([]byte(nil), report...))
}

// UploadCrash using default client.
func UploadCrash(report []byte) { InitDefault(); defaultClient.UploadCrash(report) }

// CommandListener reports executed and undone commands as anonymous
// "command" events carrying only the command kind (e.g. "CreateLine"),
// never ids, names or coordinates. It satisfies document.Listener.
type CommandListener struct {
	Client *Client
}

func (l CommandListener) Executed(cmd undo.Command) { l.report("execute", cmd) }
func (l CommandListener) Undone(cmd undo.Command)   { l.report("undo", cmd) }

func (l CommandListener) report(op string, cmd undo.Command) {
	c := l.Client
	if c == nil {
		InitDefault()
		c = defaultClient
	}
	c.Event("command", map[string]any{"op": op, "kind": CommandKind(cmd)})
}

// CommandKind returns the command name without its arguments.
func CommandKind(cmd undo.Command) string {
	s := cmd.String()
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return s
}
