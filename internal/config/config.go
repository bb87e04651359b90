// Package config предоставляет структуры и функции для загрузки конфигурации.
//
// Конфигурация читается из YAML-файла по пути CONFIG_PATH; секреты
// переопределяются переменными окружения. Перед чтением подгружается
// необязательный .env.
package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Окружения запуска.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	CatalogPath             string `yaml:"catalog_path" env:"CATALOG_PATH"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Stripe                  `yaml:"stripe"`
	Scheduler               `yaml:"scheduler"`
	RateLimit               `yaml:"rate_limit"`
	CORS                    `yaml:"cors"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	UserCacheTTL time.Duration `yaml:"user_cache_ttl" env-default:"5m"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ настройки брокера.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP настройки почтового сервера.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
	SMTPFrom string `yaml:"from" env:"SMTP_FROM"`
}

// Stripe настройки платёжного провайдера.
type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	AppURL        string `yaml:"app_url" env:"APP_URL" env-default:"http://localhost:3000"`
	// APIURL переопределяет адрес API, используется в тестах и с stripe-mock.
	APIURL        string `yaml:"api_url" env:"STRIPE_API_URL"`
	PriceStarter  string `yaml:"price_starter" env:"STRIPE_PRICE_STARTER"`
	PriceEnhanced string `yaml:"price_enhanced" env:"STRIPE_PRICE_ENHANCED"`
	PriceComplete string `yaml:"price_complete" env:"STRIPE_PRICE_COMPLETE"`
	PriceTutoring string `yaml:"price_tutoring" env:"STRIPE_PRICE_TUTORING"`
}

// Prices возвращает настроенные идентификаторы цен по тарифам; пустые не включаются.
func (s Stripe) Prices() map[string]string {
	prices := make(map[string]string, 4)
	for id, price := range map[string]string{
		"starter":  s.PriceStarter,
		"enhanced": s.PriceEnhanced,
		"complete": s.PriceComplete,
		"tutoring": s.PriceTutoring,
	} {
		if price != "" {
			prices[id] = price
		}
	}
	return prices
}

// Scheduler настройки напоминаний об окончании доступа.
type Scheduler struct {
	Interval     time.Duration `yaml:"interval" env-default:"24h"`
	NotifyBefore time.Duration `yaml:"notify_before" env-default:"168h"`
}

// RateLimit ограничение запросов с одного IP.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// CORS разрешённые источники фронтенда.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// Load читает конфигурацию из path с переопределением из окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает .env (если есть) и конфиг из CONFIG_PATH, завершая процесс при ошибке.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// LogValue скрывает секреты при логировании конфигурации.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.Env),
		slog.String("http_address", c.AddressHTTP),
		slog.String("redis_address", c.AddressRedis),
		slog.String("migrations_path", c.MigrationsPath),
		slog.String("catalog_path", c.CatalogPath),
		slog.String("app_url", c.AppURL),
		slog.Bool("stripe_key_set", c.SecretKey != ""),
		slog.Bool("webhook_secret_set", c.WebhookSecret != ""),
		slog.Int("configured_prices", len(c.Prices())),
	)
}
