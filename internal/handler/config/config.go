package config

import "time"

type Config struct {
	ServerAddr string        `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret  string        `env:"ADMIN_JWT_SECRET"`
	TokenTTL   time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"24h"`
}
