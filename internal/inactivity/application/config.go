package application

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines alerting configuration. Values come from env with defaults
// and may be overridden by a yaml file pointed at by ALERTS_CONFIG.
type Config struct {
	Window         time.Duration `yaml:"-"`
	WindowRaw      string        `yaml:"window"`
	FromAddress    string        `yaml:"from_address"`
	AppBaseURL     string        `yaml:"app_base_url"`
	EmailTemplate  string        `yaml:"email_template"`
	ResendAPIKey   string        `yaml:"resend_api_key"`
	CronSecret     string        `yaml:"cron_secret"`
	RequestTimeout time.Duration `yaml:"-"`
	TimeoutRaw     string        `yaml:"request_timeout"`
}

// LoadConfig loads alerting config from env and an optional yaml file.
func LoadConfig() (Config, error) {
	cfg := Config{
		WindowRaw:    getenvDefault("ALERT_WINDOW", "24h"),
		FromAddress:  getenvDefault("ALERT_EMAIL_FROM", ""),
		AppBaseURL:   getenvDefault("APP_BASE_URL", "http://localhost:8080"),
		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		CronSecret:   os.Getenv("CRON_SECRET"),
		TimeoutRaw:   getenvDefault("ALERT_SEND_TIMEOUT", "10s"),
	}

	if path := os.Getenv("ALERTS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Window = parseDurationDefault(cfg.WindowRaw, 24*time.Hour)
	cfg.RequestTimeout = parseDurationDefault(cfg.TimeoutRaw, 10*time.Second)
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseDurationDefault(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
