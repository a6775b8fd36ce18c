package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// UploadConfig holds everything the Weather-Underground-format uploader
// needs. The retry knobs mirror the host's generic queued-post policy.
type UploadConfig struct {
	Enable    bool
	Station   string `validate:"required"`
	Password  string `validate:"required"`
	ServerURL string `validate:"required,url"`

	// SoftwareType is reported in the softwaretype query parameter.
	SoftwareType string

	MaxTries  int           // total attempts per record
	RetryWait time.Duration // initial wait between attempts
	Timeout   time.Duration // outbound HTTP client timeout

	MaxBacklog   int           // bounded in-memory queue; oldest dropped when full
	Stale        time.Duration // records older than this are skipped (0 = never)
	PostInterval time.Duration // minimum gap between posts (0 = every record)

	LogSuccess bool
	LogFailure bool
}

// MQTTConfig configures the archive-record subscription. An empty Broker
// disables MQTT ingest; the HTTP ingest endpoint still works.
type MQTTConfig struct {
	Broker   string
	Port     int
	Topic    string
	ClientID string
}

// SpoolConfig configures the sqlite spool of records that exhausted retries.
type SpoolConfig struct {
	Path          string
	DrainInterval time.Duration
	DrainBatch    int
}

type AppConfig struct {
	AppEnv   string
	LogLevel string
	Port     string

	Upload UploadConfig
	MQTT   MQTTConfig
	Spool  SpoolConfig
}

// Load reads configuration from environment with sensible defaults.
// A missing or invalid server URL does not fail startup: the uploader is
// disabled with a warning and the rest of the process keeps running.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.Port = getenvDefault("HTTP_PORT", "8080")

	up, err := loadUpload()
	if err != nil {
		return nil, err
	}
	cfg.Upload = up

	cfg.MQTT = MQTTConfig{
		Broker:   os.Getenv("MQTT_BROKER"),
		Port:     getenvInt("MQTT_PORT", 1883),
		Topic:    getenvDefault("MQTT_TOPIC", "weather/archive"),
		ClientID: getenvDefault("MQTT_CLIENT_ID", "wulike"),
	}

	drainInterval, err := getenvDuration("SPOOL_DRAIN_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	cfg.Spool = SpoolConfig{
		Path:          getenvDefault("SPOOL_PATH", "wulike-spool.db"),
		DrainInterval: drainInterval,
		DrainBatch:    getenvInt("SPOOL_DRAIN_BATCH", 50),
	}

	return cfg, nil
}

func loadUpload() (UploadConfig, error) {
	up := UploadConfig{
		Enable:       getenvBool("WULIKE_ENABLE", false),
		Station:      os.Getenv("WULIKE_STATION"),
		Password:     os.Getenv("WULIKE_PASSWORD"),
		ServerURL:    os.Getenv("WULIKE_SERVER_URL"),
		SoftwareType: getenvDefault("WULIKE_SOFTWARE_TYPE", "wulike"),
		MaxTries:     getenvInt("WULIKE_MAX_TRIES", 3),
		MaxBacklog:   getenvInt("WULIKE_MAX_BACKLOG", 100),
		LogSuccess:   getenvBool("WULIKE_LOG_SUCCESS", true),
		LogFailure:   getenvBool("WULIKE_LOG_FAILURE", true),
	}

	var err error
	if up.RetryWait, err = getenvDuration("WULIKE_RETRY_WAIT", "5s"); err != nil {
		return up, err
	}
	if up.Timeout, err = getenvDuration("WULIKE_TIMEOUT", "10s"); err != nil {
		return up, err
	}
	if up.Stale, err = getenvDuration("WULIKE_STALE", "30m"); err != nil {
		return up, err
	}
	if up.PostInterval, err = getenvDuration("WULIKE_POST_INTERVAL", "0s"); err != nil {
		return up, err
	}
	if up.MaxTries < 1 {
		return up, fmt.Errorf("invalid WULIKE_MAX_TRIES %d (must be >= 1)", up.MaxTries)
	}

	// Rapidfire is not supported: accept the key so existing host configs do
	// not break, but force it off.
	if getenvBool("WULIKE_RAPIDFIRE", false) {
		log.Printf("WARN: rapidfire posts are not supported; ignoring WULIKE_RAPIDFIRE")
	}

	if !up.Enable {
		return up, nil
	}

	// Misconfiguration disables the uploader rather than killing the process.
	if err := up.validateEnabled(); err != nil {
		log.Printf("WARN: uploader disabled: %v", err)
		up.Enable = false
	}
	return up, nil
}

// validateEnabled checks the fields that only matter when the uploader is on.
func (u UploadConfig) validateEnabled() error {
	if err := validate.Struct(u); err != nil {
		return err
	}
	parsed, err := url.Parse(u.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid WULIKE_SERVER_URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid WULIKE_SERVER_URL scheme %q (allowed: http, https)", parsed.Scheme)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
