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
	ApiKey      string `yaml:"api_key" env:"BOT_TOKEN" env-default:""`
	GroupChatId int64  `yaml:"group_chat_id" env:"GROUP_CHAT_ID" env-default:"0"`
}

type DatabaseConfig struct {
	HostName string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"user" env-default:"groupwarden"`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"groupwarden"`
}

type BotConfig struct {
	// ChallengeTimeoutSec is both the answer deadline and the lifetime of
	// every verification prompt before auto-deletion.
	ChallengeTimeoutSec int `yaml:"challenge_timeout_sec" env-default:"300"`
	// MaxAttempts is accepted for compatibility with older deployments;
	// grading is single-attempt and values above 1 only produce a warning.
	MaxAttempts     int    `yaml:"max_attempts" env-default:"1"`
	MembersPerPage  int    `yaml:"members_per_page" env-default:"10"`
	RankingLimit    int    `yaml:"ranking_limit" env-default:"20"`
	DefaultLanguage string `yaml:"default_language" env-default:"en"`
	LanguagesFile   string `yaml:"languages_file" env-default:"languages.json"`
}

type ApiConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	Token   string `yaml:"token" env-default:""`
}

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Database DatabaseConfig `yaml:"database"`
	Bot      BotConfig      `yaml:"bot"`
	Api      ApiConfig      `yaml:"api"`
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
		if instance.Telegram.ApiKey == "" {
			log.Fatal("config: telegram api_key is required")
		}
		if instance.Telegram.GroupChatId == 0 {
			log.Fatal("config: telegram group_chat_id is required")
		}
	})
	return instance
}
