package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	botConfig "github.com/iurnickita/coursebot/internal/bot/config"
	catalogConfig "github.com/iurnickita/coursebot/internal/catalog/config"
	handlerConfig "github.com/iurnickita/coursebot/internal/handler/config"
	lockConfig "github.com/iurnickita/coursebot/internal/lock/config"
	loggerConfig "github.com/iurnickita/coursebot/internal/logger/config"
	notifyConfig "github.com/iurnickita/coursebot/internal/notify/config"
	pricingConfig "github.com/iurnickita/coursebot/internal/pricing/config"
	serviceConfig "github.com/iurnickita/coursebot/internal/service/config"
	storeConfig "github.com/iurnickita/coursebot/internal/store/config"
)

type Config struct {
	Bot     botConfig.Config
	Catalog catalogConfig.Config
	Handler handlerConfig.Config
	Lock    lockConfig.Config
	Logger  loggerConfig.Config
	Notify  notifyConfig.Config
	Pricing pricingConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
}

func GetConfig() (Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
