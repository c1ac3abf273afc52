package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Verify   VerifyConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type NATSConfig struct {
	URL string
}

// VerifyConfig задаёт параметры выдачи и погашения ссылок верификации
type VerifyConfig struct {
	PublicURL        string
	Provenance       string
	RotationInterval time.Duration
	NotifySubject    string
}

type LogConfig struct {
	Level string
	JSON  bool
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_DBNAME", "altwatch")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("VERIFY_PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("VERIFY_PROVENANCE", "bot")
	v.SetDefault("VERIFY_ROTATION_INTERVAL", "30")
	v.SetDefault("VERIFY_NOTIFY_SUBJECT", "verification.classified")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", "false")

	serverPort, err := strconv.Atoi(v.GetString("SERVER_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	databasePort, err := strconv.Atoi(v.GetString("DATABASE_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_PORT: %w", err)
	}

	rotationSeconds, err := strconv.Atoi(v.GetString("VERIFY_ROTATION_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid VERIFY_ROTATION_INTERVAL: %w", err)
	}
	if rotationSeconds <= 0 {
		return nil, fmt.Errorf("VERIFY_ROTATION_INTERVAL must be positive, got %d", rotationSeconds)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: serverPort,
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     databasePort,
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			DBName:   v.GetString("DATABASE_DBNAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		NATS: NATSConfig{
			URL: v.GetString("NATS_URL"),
		},
		Verify: VerifyConfig{
			PublicURL:        v.GetString("VERIFY_PUBLIC_URL"),
			Provenance:       v.GetString("VERIFY_PROVENANCE"),
			RotationInterval: time.Duration(rotationSeconds) * time.Second,
			NotifySubject:    v.GetString("VERIFY_NOTIFY_SUBJECT"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			JSON:  v.GetBool("LOG_JSON"),
		},
	}

	return cfg, nil
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}
