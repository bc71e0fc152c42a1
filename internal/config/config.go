package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	FeedWindow        int           `mapstructure:"feed_window" yaml:"feed_window"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "chatsync.db",
		LogLevel:          "info",
		FeedWindow:        25,
		JWTSecret:         "change-me",
		JWTIssuer:         "chatsync",
		JWTAudience:       "chatsync",
		JWTTTL:            24 * time.Hour,
	}
}
