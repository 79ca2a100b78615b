package config

type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
	GRPC GRPCConfig `mapstructure:"grpc"`
}

type HTTPConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	BodyLimit      string   `mapstructure:"body_limit"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// FilterRate and FilterBurst bound the public ingredient filter per client IP.
	FilterRate  float64 `mapstructure:"filter_rate"`
	FilterBurst int     `mapstructure:"filter_burst"`
}

type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}
