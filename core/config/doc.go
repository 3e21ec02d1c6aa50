// Package config loads environment variables into tagged structs using
// caarlos0/env, after loading a .env file with godotenv when present.
//
//	type Config struct {
//		Env  config.Environment `env:"APP_ENV" envDefault:"development"`
//		Addr string             `env:"SERVER_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Each configuration type is parsed once per process and cached; Reset clears
// the cache.
package config
