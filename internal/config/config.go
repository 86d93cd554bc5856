/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	applog "drawdoc/internal/log"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Viewport      ViewportConfig `yaml:"viewport"`
	Undo          UndoConfig     `yaml:"undo"`
	Index         IndexConfig    `yaml:"index"`
	Server        ServerConfig   `yaml:"server"`
	Logging       LoggingConfig  `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
	// BackupsKeep is how many manifest backups Save leaves behind (0 keeps all).
	BackupsKeep int `yaml:"backups_keep"`
}

// ViewportConfig is the display surface the shell starts with.
type ViewportConfig struct {
	CanvasWidth  float64 `yaml:"canvas_width"`
	CanvasHeight float64 `yaml:"canvas_height"`
}

type UndoConfig struct {
	MaxDepth int `yaml:"max_depth"` // 0 = unbounded
}

type IndexConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ServerConfig covers both sides of the document server: BaseURL is what
// the client talks to, Addr and DatabaseURL are what "drawdoc serve" uses.
type ServerConfig struct {
	BaseURL     string `yaml:"base_url"`
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"db_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, BackupsKeep: 20},
		Viewport:      ViewportConfig{CanvasWidth: 400, CanvasHeight: 400},
		Undo:          UndoConfig{MaxDepth: 0},
		Index:         IndexConfig{Enabled: true},
		Server:        ServerConfig{BaseURL: "http://localhost:8080", Addr: ":8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "DRAWDOC_CONFIG"
	EnvServerURL       = "DRAWDOC_SERVER_URL"
	EnvServerAddr      = "DRAWDOC_SERVER_ADDR"
	EnvDatabaseURL     = "DRAWDOC_DATABASE_URL"
	EnvServerTimeoutMs = "DRAWDOC_SERVER_TIMEOUT_MS"
	EnvTLSInsecure     = "DRAWDOC_TLS_INSECURE"
	EnvTelemetryOptIn  = "DRAWDOC_TELEMETRY_OPT_IN"
	EnvUndoMaxDepth    = "DRAWDOC_UNDO_MAX_DEPTH"
	EnvIndexEnabled    = "DRAWDOC_INDEX_ENABLED"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "DRAWDOC_LOG_LEVEL"
	EnvLogFormat = "DRAWDOC_LOG_FORMAT"
	EnvLogSource = "DRAWDOC_LOG_SOURCE"
	EnvLogFile   = "DRAWDOC_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "drawdoc"
	keyringToken   = "server_token"
)

// TokenStore abstracts the keyring so callers can swap it out.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// ConfigPath returns the per-user config file path. DRAWDOC_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "drawdoc")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "drawdoc")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "drawdoc")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "drawdoc")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the server token from keyring (not kept inside the struct; returned separately).
// A malformed file is reported but the defaults plus env are still returned.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	var fileErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			fileErr = err
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := Token()
	return cfg, tok, fileErr
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return SaveToken(token)
	}
	return nil
}

// Token returns the stored server token; a missing entry yields "" and no error.
func Token() (string, error) {
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// SaveToken stores the server token in the OS keyring.
func SaveToken(token string) error {
	return tokenStore.Set(keyringService, keyringToken, token)
}

// DeleteToken removes the stored token; deleting a missing token is not an error.
func DeleteToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.General.BackupsKeep != 0 {
		dst.General.BackupsKeep = src.General.BackupsKeep
	}
	if src.Viewport.CanvasWidth > 0 {
		dst.Viewport.CanvasWidth = src.Viewport.CanvasWidth
	}
	if src.Viewport.CanvasHeight > 0 {
		dst.Viewport.CanvasHeight = src.Viewport.CanvasHeight
	}
	if src.Undo.MaxDepth > 0 {
		dst.Undo.MaxDepth = src.Undo.MaxDepth
	}
	dst.Index.Enabled = src.Index.Enabled
	if s := strings.TrimSpace(src.Server.BaseURL); s != "" {
		dst.Server.BaseURL = s
	}
	if s := strings.TrimSpace(src.Server.Addr); s != "" {
		dst.Server.Addr = s
	}
	if s := strings.TrimSpace(src.Server.DatabaseURL); s != "" {
		dst.Server.DatabaseURL = s
	}
	if src.Server.TimeoutMs != 0 {
		dst.Server.TimeoutMs = src.Server.TimeoutMs
	}
	dst.Server.TLSInsecure = src.Server.TLSInsecure
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		cfg.Server.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.TimeoutMs = n
		}
	}
	if v := os.Getenv(EnvTLSInsecure); strings.TrimSpace(v) != "" {
		cfg.Server.TLSInsecure = parseBool(v)
	}
	if v := os.Getenv(EnvTelemetryOptIn); strings.TrimSpace(v) != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvUndoMaxDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Undo.MaxDepth = n
		}
	}
	if v := os.Getenv(EnvIndexEnabled); strings.TrimSpace(v) != "" {
		cfg.Index.Enabled = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogSource); strings.TrimSpace(v) != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// envKeys maps dotted config keys to their override variables.
var envKeys = map[string]string{
	"server.base_url":          EnvServerURL,
	"server.addr":              EnvServerAddr,
	"server.db_url":            EnvDatabaseURL,
	"server.timeout_ms":        EnvServerTimeoutMs,
	"server.tls_insecure":      EnvTLSInsecure,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"undo.max_depth":           EnvUndoMaxDepth,
	"index.enabled":            EnvIndexEnabled,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the server request timeout, falling back to the default.
func (s ServerConfig) Timeout() time.Duration {
	ms := s.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Server.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// LogOptions converts the logging section for log.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
