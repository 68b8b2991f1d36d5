package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Backend   BackendConfig
	Dashboard DashboardConfig
	Web       WebConfig
	Database  DatabaseConfig
	Settings  SettingsConfig
}

type BackendConfig struct {
	URL         string // attendance backend base URL (e.g., http://localhost:8000)
	WSURL       string // WebSocket base URL, derived from URL when empty
	DatabaseURL string // optional MariaDB DSN for read-only analytics queries
}

// WebSocketURL returns the configured WebSocket base URL or derives it from
// the HTTP base URL (http -> ws, https -> wss).
func (c *BackendConfig) WebSocketURL() string {
	if c.WSURL != "" {
		return strings.TrimRight(c.WSURL, "/")
	}
	base := strings.TrimRight(c.URL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

// DashboardConfig holds the live-view and attendance defaults.
type DashboardConfig struct {
	Slots             []string      `yaml:"slots"`
	LateAfter         string        `yaml:"late_after"`
	ReferenceWidth    int           `yaml:"reference_width"`
	ReferenceHeight   int           `yaml:"reference_height"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	AnalyticsCacheTTL time.Duration `yaml:"analytics_cache_ttl"`
	ExportFormats     []string      `yaml:"export_formats"`
	MinFaceImages     int           `yaml:"min_face_images"`
	MaxFaceImages     int           `yaml:"max_face_images"`
	Timezone          string        `yaml:"timezone"`
}

// Location returns the time zone used for "today" and late computations.
// Falls back to the local zone when Timezone is empty or unknown.
func (c *DashboardConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type WebConfig struct {
	Username       string // operator login, empty disables authentication
	AllowedOrigins string // comma-separated CORS whitelist
	password       string
}

// GetPassword returns the operator password.
func (c *WebConfig) GetPassword() string {
	return c.password
}

// SetPassword sets the operator password (used by tests and flags).
func (c *WebConfig) SetPassword(p string) {
	c.password = p
}

// AuthEnabled reports whether the dashboard requires a login.
func (c *WebConfig) AuthEnabled() bool {
	return c.Username != "" && c.password != ""
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL for session persistence (optional)
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type SettingsConfig struct {
	Path string // SQLite file for dashboard settings, empty keeps settings in memory
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive time.Duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func loadDefaults() DashboardConfig {
	var d DashboardConfig
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// embedded file, can only fail on a broken build
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := loadDefaults()

	d.LateAfter = envString("LATE_AFTER", d.LateAfter)
	d.ReferenceWidth = envInt("AI_REFERENCE_WIDTH", d.ReferenceWidth)
	d.ReferenceHeight = envInt("AI_REFERENCE_HEIGHT", d.ReferenceHeight)
	d.ReconnectDelay = envDuration("AI_RECONNECT_DELAY", d.ReconnectDelay)
	d.PollInterval = envDuration("ATTENDANCE_POLL_INTERVAL", d.PollInterval)
	d.AnalyticsCacheTTL = envDuration("ANALYTICS_CACHE_TTL", d.AnalyticsCacheTTL)
	d.Timezone = envString("DASHBOARD_TIMEZONE", d.Timezone)

	web := WebConfig{
		Username:       os.Getenv("DASHBOARD_USERNAME"),
		AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
	}
	web.SetPassword(os.Getenv("DASHBOARD_PASSWORD"))

	return &Config{
		Backend: BackendConfig{
			URL:         strings.TrimRight(envString("BACKEND_URL", "http://localhost:8000"), "/"),
			WSURL:       os.Getenv("BACKEND_WS_URL"),
			DatabaseURL: os.Getenv("BACKEND_DATABASE_URL"),
		},
		Dashboard: d,
		Web:       web,
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Settings: SettingsConfig{
			Path: os.Getenv("SETTINGS_DB_PATH"),
		},
	}
}

// HasExportFormat reports whether format is one of the enabled export formats.
func (c *Config) HasExportFormat(format string) bool {
	for _, f := range c.Dashboard.ExportFormats {
		if f == format {
			return true
		}
	}
	return false
}
