package config

import "time"

type Config struct {
	// Пустой адрес - блокировки внутри процесса
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL           time.Duration `env:"LOCK_TTL" envDefault:"10s"`
}
