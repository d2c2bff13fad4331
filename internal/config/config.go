package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort            string   `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL         string   `env:"DATABASE_URL,required"`
	RedisAddr           string   `env:"REDIS_ADDR"`
	RedisPassword       string   `env:"REDIS_PASSWORD"`
	RedisDB             int      `env:"REDIS_DB" envDefault:"0"`
	AdminWallets        []string `env:"ADMIN_WALLETS" envSeparator:","`
	BlockedWords        []string `env:"BLOCKED_WORDS" envSeparator:","`
	ChatCooldownSeconds int      `env:"CHAT_COOLDOWN_SECONDS" envDefault:"60"`
	HolderServiceURL    string   `env:"HOLDER_SERVICE_URL"`
	AssertionSkewSecs   int      `env:"ASSERTION_SKEW_SECONDS" envDefault:"60"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
