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

type TelegramConfig struct {
	ApiKey         string `yaml:"api_key" env:"BOT_TOKEN" env-default:""`
	AdminId        int64  `yaml:"admin_id" env:"ADMIN_ID" env-default:"0"`
	CodeLength     int    `yaml:"code_length" env-default:"8"`
	SweepIntervalH int    `yaml:"sweep_interval_hours" env-default:"12"`
}

type ApiConfig struct {
	Token string `yaml:"token" env:"API_TOKEN" env-default:""`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"codegate"`
}

type MySqlConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"3306"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"codegate"`
	Prefix   string `yaml:"prefix" env-default:""`
}

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Api      ApiConfig      `yaml:"api"`
	Mongo    MongoConfig    `yaml:"mongo"`
	MySql    MySqlConfig    `yaml:"mysql"`
	Listen   Listen         `yaml:"listen"`
	Env      string         `yaml:"env" env-default:"local"`
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
	})
	return instance
}
