package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // минуты
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	Stripe struct {
		// Пустой SecretKey означает, что биллинг работает в degraded-режиме:
		// подписки создаются только локально, без обращений к Stripe.
		SecretKey      string `yaml:"secret_key"`
		WebhookSecret  string `yaml:"webhook_secret"`
		PublishableKey string `yaml:"publishable_key"`
	} `yaml:"stripe"`

	Billing struct {
		DefaultCurrency string `yaml:"default_currency"`
	} `yaml:"billing"`

	FirstAdminEmail    string `yaml:"first_admin_email"`
	FirstAdminPassword string `yaml:"first_admin_password"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		log.Println("Загрузка из config.yaml")

		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyEnvOverrides(&cfg)
		setDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	log.Println("Загрузка конфигурации из ПЕРЕМЕННЫХ ОКРУЖЕНИЯ (режим теста)")

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	AppConfig = &cfg
}

// applyEnvOverrides позволяет переопределить секреты через окружение,
// чтобы не хранить их в config.yaml
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.Stripe.SecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Stripe.WebhookSecret = v
	}
	if v := os.Getenv("STRIPE_PUBLISHABLE_KEY"); v != "" {
		cfg.Stripe.PublishableKey = v
	}
	if v := os.Getenv("FIRST_ADMIN_EMAIL"); v != "" {
		cfg.FirstAdminEmail = v
	}
	if v := os.Getenv("FIRST_ADMIN_PASSWORD"); v != "" {
		cfg.FirstAdminPassword = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Billing.DefaultCurrency == "" {
		cfg.Billing.DefaultCurrency = "usd"
	}
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 60
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

// StripeEnabled сообщает, сконфигурирован ли платежный провайдер
func (c *Config) StripeEnabled() bool {
	return c.Stripe.SecretKey != ""
}
