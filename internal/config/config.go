package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"vatbill"`
}

type VatConfig struct {
	DefaultRate    float64 `yaml:"default_rate" env-default:"0.075"`
	DefaultCountry string  `yaml:"default_country" env-default:"US"`
}

type NotifyConfig struct {
	EmailEndpoint  string `yaml:"email_endpoint" env-default:""`
	EmailApiKey    string `yaml:"email_api_key" env-default:""`
	TelegramApiKey string `yaml:"telegram_api_key" env-default:""`
	TelegramChatId int64  `yaml:"telegram_chat_id" env-default:"0"`
}

type StripeConfig struct {
	WebhookSecret string `yaml:"webhook_secret" env-default:""`
	TestMode      bool   `yaml:"test_mode" env-default:"false"`
}

type Config struct {
	Mongo  MongoConfig  `yaml:"mongo"`
	Vat    VatConfig    `yaml:"vat"`
	Notify NotifyConfig `yaml:"notify"`
	Stripe StripeConfig `yaml:"stripe"`
	Listen Listen       `yaml:"listen"`
	Env    string       `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		if instance.Vat.DefaultRate < 0 || instance.Vat.DefaultRate > 1 {
			log.Fatalf("config: default vat rate %v is outside [0,1]", instance.Vat.DefaultRate)
		}
	})
	return instance
}
