package config

import "time"

type Config struct {
	// Пустой DSN - хранилище в памяти
	DBDsn          string        `env:"DATABASE_DSN"`
	RequestTimeout time.Duration `env:"STORE_REQUEST_TIMEOUT" envDefault:"5s"`
}
