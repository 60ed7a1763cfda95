package config

type Config struct {
	SinglePrice int `env:"PRICE_SINGLE" envDefault:"75000"`
	MultiPrice  int `env:"PRICE_MULTI" envDefault:"50000"`
}
