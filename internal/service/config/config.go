package config

import "time"

type Config struct {
	AdminIDs    []int64 `env:"TELEGRAM_ADMIN_IDS" envSeparator:","`
	ShamNumber  string  `env:"SHAM_CASH_NUMBER"`
	HaramNumber string  `env:"HARAM_NUMBER"`
	// 0 - сессии не истекают
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"0"`
}
