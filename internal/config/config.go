// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Catalog source kinds.
const (
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Data    DataConfig
	Server  ServerConfig
	Catalog CatalogConfig
	Engine  EngineConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	// BasePath holds the snapshot cache and the search index (default: ~/Katalog/data).
	BasePath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port          string        // Server port (default: 8080)
	ReadTimeout   time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout  time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout   time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins   []string      // Allowed origins (default: *)
	EventsPerSec  float64       // Inbound viewer events per client IP (default: 60)
	ViewerIdleTTL time.Duration // Viewers without activity are dropped after this (default: 30m)
}

// CatalogConfig holds the figure catalog source configuration.
type CatalogConfig struct {
	// Source is either "http" (spreadsheet JSON endpoints) or "sqlite" (local export).
	Source       string
	ImagesURL    string
	HotspotsURL  string
	PartsURL     string
	SQLitePath   string
	// WatchSQLite reloads the catalog when the export file changes (default: true).
	WatchSQLite     bool
	RefreshInterval time.Duration // 0 disables periodic refresh (default: 15m)
	RequestsPerSec  float64       // Outbound requests per host (default: 5)
	FetchTimeout    time.Duration // Per-request timeout (default: 20s)
}

// EngineConfig holds interactive figure behavior.
type EngineConfig struct {
	CaseSensitiveFigureMatch bool
	ScrollCenterMode         string // viewport-center | fixed-offset
	FixedScrollOffset        float64
	CoordinateFormat         string // list | single
	ResizeDebounce           time.Duration
	RowHighlightDuration     time.Duration
	MarkerGlowDuration       time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for cache and search index")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := flag.String("cors-origins", "", "Comma separated allowed origins (default: *)")

	// Catalog flags
	catalogSource := flag.String("catalog-source", "", "Catalog source: http or sqlite (default: http)")
	imagesURL := flag.String("images-url", "", "JSON endpoint for figure images")
	hotspotsURL := flag.String("hotspots-url", "", "JSON endpoint for hotspot records")
	partsURL := flag.String("parts-url", "", "JSON endpoint for part info")
	sqlitePath := flag.String("sqlite-path", "", "Path to the SQLite catalog export")
	refreshInterval := flag.String("refresh-interval", "", "Catalog refresh interval (default: 15m)")

	// Engine flags
	caseSensitive := flag.String("figure-case-sensitive", "", "Match figure ids case-sensitively (default: false)")
	scrollMode := flag.String("scroll-center-mode", "", "viewport-center or fixed-offset (default: viewport-center)")
	coordFormat := flag.String("coordinate-format", "", "list or single (default: list)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:         getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:  splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
			EventsPerSec: getFloatConfigValue("", "SERVER_EVENTS_PER_SEC", 60),
		},
		Catalog: CatalogConfig{
			Source:         strings.ToLower(getConfigValue(*catalogSource, "CATALOG_SOURCE", SourceHTTP)),
			ImagesURL:      getConfigValue(*imagesURL, "CATALOG_IMAGES_URL", ""),
			HotspotsURL:    getConfigValue(*hotspotsURL, "CATALOG_HOTSPOTS_URL", ""),
			PartsURL:       getConfigValue(*partsURL, "CATALOG_PARTS_URL", ""),
			SQLitePath:     getConfigValue(*sqlitePath, "CATALOG_SQLITE_PATH", ""),
			WatchSQLite:    getBoolConfigValue("", "CATALOG_WATCH_SQLITE", true),
			RequestsPerSec: getFloatConfigValue("", "CATALOG_RPS", 5),
		},
		Engine: EngineConfig{
			CaseSensitiveFigureMatch: getBoolConfigValue(*caseSensitive, "FIGURE_MATCH_CASE_SENSITIVE", false),
			ScrollCenterMode:         getConfigValue(*scrollMode, "SCROLL_CENTER_MODE", "viewport-center"),
			FixedScrollOffset:        getFloatConfigValue("", "FIXED_SCROLL_OFFSET", 100),
			CoordinateFormat:         getConfigValue(*coordFormat, "COORDINATE_FORMAT", "list"),
		},
	}

	// Parse server timeouts and engine durations.
	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*refreshInterval, "CATALOG_REFRESH_INTERVAL", "15m", &cfg.Catalog.RefreshInterval},
		{"", "CATALOG_FETCH_TIMEOUT", "20s", &cfg.Catalog.FetchTimeout},
		{"", "VIEWER_IDLE_TTL", "30m", &cfg.Server.ViewerIdleTTL},
		{"", "RESIZE_DEBOUNCE", "100ms", &cfg.Engine.ResizeDebounce},
		{"", "ROW_HIGHLIGHT_DURATION", "1500ms", &cfg.Engine.RowHighlightDuration},
		{"", "MARKER_GLOW_DURATION", "1s", &cfg.Engine.MarkerGlowDuration},
	}
	for _, d := range durations {
		value, err := getDurationConfigValue(d.flagValue, d.envKey, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = value
	}

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Expand the SQLite export path when one is configured.
	if cfg.Catalog.SQLitePath != "" {
		expanded, err := expandPath(cfg.Catalog.SQLitePath, "")
		if err != nil {
			return nil, fmt.Errorf("invalid sqlite path: %w", err)
		}
		cfg.Catalog.SQLitePath = expanded
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	switch c.Catalog.Source {
	case SourceHTTP:
		if c.Catalog.ImagesURL == "" || c.Catalog.HotspotsURL == "" || c.Catalog.PartsURL == "" {
			return errors.New("CATALOG_IMAGES_URL, CATALOG_HOTSPOTS_URL and CATALOG_PARTS_URL are required for the http source")
		}
	case SourceSQLite:
		if c.Catalog.SQLitePath == "" {
			return errors.New("CATALOG_SQLITE_PATH is required for the sqlite source")
		}
	default:
		return fmt.Errorf("invalid catalog source: %s (must be http or sqlite)", c.Catalog.Source)
	}

	if c.Catalog.RequestsPerSec <= 0 {
		return fmt.Errorf("invalid catalog rps: %v (must be positive)", c.Catalog.RequestsPerSec)
	}

	switch c.Engine.ScrollCenterMode {
	case "viewport-center", "fixed-offset":
	default:
		return fmt.Errorf("invalid scroll center mode: %s (must be viewport-center or fixed-offset)", c.Engine.ScrollCenterMode)
	}

	switch c.Engine.CoordinateFormat {
	case "list", "single":
	default:
		return fmt.Errorf("invalid coordinate format: %s (must be list or single)", c.Engine.CoordinateFormat)
	}

	if c.Server.ViewerIdleTTL <= 0 {
		return fmt.Errorf("invalid viewer idle ttl: %v (must be positive)", c.Server.ViewerIdleTTL)
	}

	if c.Engine.ResizeDebounce <= 0 || c.Engine.RowHighlightDuration <= 0 || c.Engine.MarkerGlowDuration <= 0 {
		return errors.New("engine durations must be positive")
	}

	return nil
}

// SearchIndexPath returns the on-disk location of the part search index.
func (c *Config) SearchIndexPath() string {
	return filepath.Join(c.Data.BasePath, "search")
}

// CachePath returns the on-disk location of the snapshot cache.
func (c *Config) CachePath() string {
	return filepath.Join(c.Data.BasePath, "cache")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Katalog", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Existing env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
