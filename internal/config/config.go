package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/carousell/ct-go/pkg/logger/log"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Storage  StorageConfig  `envPrefix:"STORAGE_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
}

type ServerConfig struct {
	Addr string `env:"ADDR" envDefault:":8080"`
}

type DatabaseConfig struct {
	Hosts    []string `env:"HOSTS" envDefault:"localhost:27017"`
	Database string   `env:"DATABASE" envDefault:"bidding"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	AuthDB   string   `env:"AUTH_DB" envDefault:"admin"`
	Direct   bool     `env:"DIRECT" envDefault:"true"`
}

type StorageConfig struct {
	Endpoint      string `env:"ENDPOINT"`
	Region        string `env:"REGION" envDefault:"us-east-1"`
	Bucket        string `env:"BUCKET,required"`
	AccessKey     string `env:"ACCESS_KEY"`
	SecretKey     string `env:"SECRET_KEY"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL,required"`
	Folder        string `env:"FOLDER" envDefault:"bidding/products"`
}

type KafkaConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"product-events"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}
