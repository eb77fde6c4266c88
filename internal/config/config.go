package config

import (
	"os"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Deposit Deposit `yaml:"deposit"`
	Server  Server  `yaml:"server"`
	Mail    Mail    `yaml:"mail"`
}

type Deposit struct {
	// ContainerName is the fixed container holding all in-flight deposits.
	ContainerName string `yaml:"containerName"`
	// FinalReview gates the optional review step between submitted and
	// approved.
	FinalReview bool   `yaml:"finalReview"`
	SiteURL     string `yaml:"siteUrl"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
}

type Mail struct {
	SMTPAddr string `yaml:"smtpAddr"`
	From     string `yaml:"from"`
	Queue    string `yaml:"queue"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Deposit.ContainerName == "" {
		config.Deposit.ContainerName = "data-deposit"
	}
	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}
	if config.Mail.Queue == "" {
		config.Mail.Queue = "ridl:mail"
	}

	return config, nil
}
