package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/kauecavalcante/chef-de-geladeira/pkg/config"
)

const serviceName = "chef"

type Config struct {
	Service     ServiceConfig     `mapstructure:"service"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	MercadoPago MercadoPagoConfig `mapstructure:"mercadopago"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Plans       PlansConfig       `mapstructure:"plans"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Output      string `mapstructure:"output"`
	FilePath    string `mapstructure:"file_path"`
	Development bool   `mapstructure:"development"`
}

// AuthConfig holds the shared secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// PlansConfig holds the freemium limits.
type PlansConfig struct {
	FreeMonthlyRecipes int `mapstructure:"free_monthly_recipes"`
	FreeHistoryLimit   int `mapstructure:"free_history_limit"`
}

// LoadConfig reads configs/chef.yaml (or CONFIG_PATH) and CHEF_* environment
// variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := pkgconfig.Load(serviceName, &cfg, defaults()); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":        "chef-de-geladeira",
		"service.environment": "development",
		"service.version":     "dev",
		"service.client_url":  "http://localhost:3000",

		"server.http.host":            "0.0.0.0",
		"server.http.port":            8080,
		"server.http.body_limit":      "1M",
		"server.http.filter_rate":     1.0,
		"server.http.filter_burst":    5,
		"server.grpc.host":            "0.0.0.0",
		"server.grpc.port":            9090,
		"server.http.allowed_origins": []string{"http://localhost:3000"},

		"database.host":               "localhost",
		"database.port":               5432,
		"database.name":               "chef",
		"database.user":               "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     20,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  time.Hour,
		"database.conn_max_idle_time": 10 * time.Minute,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.file_path":   "",
		"log.development": false,

		"auth.jwt_secret": "",

		"stripe.secret_key":     "",
		"stripe.webhook_secret": "",
		"stripe.price_id":       "",

		"mercadopago.access_token": "",
		"mercadopago.base_url":     "https://api.mercadopago.com",
		"mercadopago.plan_id":      "premium-monthly",
		"mercadopago.plan_title":   "Chef de Geladeira - Plano Premium",
		"mercadopago.unit_price":   "9.90",
		"mercadopago.currency":     "BRL",
		"mercadopago.timeout":      10 * time.Second,

		"llm.api_key":  "",
		"llm.base_url": "",
		"llm.model":    "gpt-4o-mini",
		"llm.timeout":  60 * time.Second,

		"redis.enabled":       false,
		"redis.addr":          "localhost:6379",
		"redis.password":      "",
		"redis.db":            0,
		"redis.cache_ttl":     24 * time.Hour,
		"redis.event_channel": "chef.events",

		"plans.free_monthly_recipes": 10,
		"plans.free_history_limit":   3,
	}
}
