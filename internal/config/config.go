package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthMode selects how web clients prove who they are.
type AuthMode string

const (
	// AuthNone lets anyone chat under a chosen display name.
	AuthNone AuthMode = "NONE"
	// AuthSimple requires a single shared password for all web users.
	AuthSimple AuthMode = "SIMPLE"
	// AuthLinked requires linking a game account via an OTP code.
	AuthLinked AuthMode = "LINKED"
)

// Config is the runtime configuration, loaded from web-chat.yaml with
// environment overrides on top.
type Config struct {
	// Server settings
	Host       string `yaml:"host"`
	WebPort    int    `yaml:"webPort"`
	TrustProxy bool   `yaml:"trustProxy"`
	DataDir    string `yaml:"dataDir"`
	WebRoot    string `yaml:"webRoot"`

	// Authentication
	AuthMode            AuthMode `yaml:"authMode"`
	WebPassword         string   `yaml:"webPassword"`
	AdminToken          string   `yaml:"adminToken"`
	OTPRateLimitSeconds int      `yaml:"otpRateLimitSeconds"`

	// Chat limits
	MaxMessageLength           int `yaml:"maxMessageLength"`
	MaxHistoryMessages         int `yaml:"maxHistoryMessages"`
	MessageRetentionMinutes    int `yaml:"messageRetentionMinutes"`
	RateLimitMessagesPerMinute int `yaml:"rateLimitMessagesPerMinute"`

	// Customization, passed through to the web client in the status frame
	Favicon      string   `yaml:"favicon"`
	DefaultSound string   `yaml:"defaultSound"`
	SoundPresets []string `yaml:"soundPresets"`

	// Moderation
	EnableProfanityFilter bool     `yaml:"enableProfanityFilter"`
	ProfanityList         []string `yaml:"profanityList"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() *Config {
	return &Config{
		Host:                       "0.0.0.0",
		WebPort:                    25595,
		TrustProxy:                 true,
		DataDir:                    "./webchat-data",
		WebRoot:                    "./web",
		AuthMode:                   AuthNone,
		WebPassword:                "",
		AdminToken:                 "",
		OTPRateLimitSeconds:        30,
		MaxMessageLength:           256,
		MaxHistoryMessages:         50,
		MessageRetentionMinutes:    30,
		RateLimitMessagesPerMinute: 20,
		Favicon:                    "favicon.ico",
		DefaultSound:               "ding.mp3",
		SoundPresets:               []string{"ding.mp3"},
		EnableProfanityFilter:      false,
		ProfanityList:              []string{},
	}
}

// MessageRetention returns the history retention window as a duration.
func (c *Config) MessageRetention() time.Duration {
	return time.Duration(c.MessageRetentionMinutes) * time.Minute
}

// OTPCooldown returns the per-IP OTP request cooldown as a duration.
func (c *Config) OTPCooldown() time.Duration {
	return time.Duration(c.OTPRateLimitSeconds) * time.Second
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.WebPort <= 0 || c.WebPort > 65535 {
		return fmt.Errorf("webPort must be between 1 and 65535")
	}
	switch c.AuthMode {
	case AuthNone, AuthSimple, AuthLinked:
	default:
		return fmt.Errorf("authMode must be NONE, SIMPLE or LINKED, got %q", c.AuthMode)
	}
	if c.AuthMode == AuthSimple && c.WebPassword == "" {
		return fmt.Errorf("webPassword is required when authMode is SIMPLE")
	}
	if c.OTPRateLimitSeconds <= 0 {
		return fmt.Errorf("otpRateLimitSeconds must be positive")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("maxMessageLength must be positive")
	}
	if c.MaxHistoryMessages <= 0 {
		return fmt.Errorf("maxHistoryMessages must be positive")
	}
	if c.MessageRetentionMinutes <= 0 {
		return fmt.Errorf("messageRetentionMinutes must be positive")
	}
	if c.RateLimitMessagesPerMinute <= 0 {
		return fmt.Errorf("rateLimitMessagesPerMinute must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("dataDir cannot be empty")
	}
	return nil
}

// Load reads the YAML config at path, falling back to defaults when the file
// does not exist (a commented default file is written in that case). A
// malformed file is an error; unknown keys are ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.ensureDefaults()
	case os.IsNotExist(err):
		if werr := WriteDefault(path); werr != nil {
			// Not fatal, defaults still apply.
			fmt.Fprintf(os.Stderr, "webchat: could not write default config: %v\n", werr)
		}
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// ensureDefaults repairs list fields that YAML leaves nil or empty.
func (c *Config) ensureDefaults() {
	if len(c.SoundPresets) == 0 {
		c.SoundPresets = []string{"ding.mp3"}
	}
	if c.ProfanityList == nil {
		c.ProfanityList = []string{}
	}
}

// applyEnv overrides file values with WEBCHAT_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("WEBCHAT_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("WEBCHAT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.WebPort = p
		}
	}
	if v := os.Getenv("WEBCHAT_AUTH_MODE"); v != "" {
		c.AuthMode = AuthMode(v)
	}
	if v := os.Getenv("WEBCHAT_PASSWORD"); v != "" {
		c.WebPassword = v
	}
	if v := os.Getenv("WEBCHAT_ADMIN_TOKEN"); v != "" {
		c.AdminToken = v
	}
	if v := os.Getenv("WEBCHAT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("WEBCHAT_TRUST_PROXY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.TrustProxy = b
		}
	}
}

// defaultConfigContent is written verbatim so operators get a commented file.
const defaultConfigContent = `# Simple WebChat Configuration

# --- Server Settings ---
# The address and port the web server will listen on.
host: "0.0.0.0"
webPort: 25595
# Set to true if running behind a reverse proxy (e.g. Nginx, Cloudflare) to
# correctly identify client IPs from X-Forwarded-For.
trustProxy: true
# Directory for persisted state (sessions, bans) and /custom assets.
dataDir: "./webchat-data"
# Directory holding the bundled web client. Leave empty to disable.
webRoot: "./web"

# --- Authentication ---
# Options: NONE, SIMPLE, LINKED
# NONE: No authentication required.
# SIMPLE: Single password for all users.
# LINKED: Users must link their game account via OTP.
authMode: NONE

# Required if authMode is SIMPLE.
webPassword: ""

# Bearer token for the /api admin endpoints. Empty disables the admin API.
adminToken: ""

# Seconds between OTP requests per IP (LINKED mode).
otpRateLimitSeconds: 30

# --- Chat Limits ---
maxMessageLength: 256
# Number of messages to keep in memory for history replay.
maxHistoryMessages: 50
# Max age of messages in memory (minutes).
messageRetentionMinutes: 30
rateLimitMessagesPerMinute: 20

# --- Customization ---
favicon: "favicon.ico"
defaultSound: "ding.mp3"
soundPresets:
  - "ding.mp3"

# --- Moderation ---
enableProfanityFilter: false
profanityList: []
`

// WriteDefault writes the commented default configuration to path.
func WriteDefault(path string) error {
	return os.WriteFile(path, []byte(defaultConfigContent), 0o644)
}
