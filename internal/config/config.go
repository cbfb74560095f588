package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values for the messaging service.
type Config struct {
	AppEnv          string
	AppPort         string
	ShutdownTimeout time.Duration

	// MongoDB
	MongoURI string
	MongoDB  string

	// Redis
	RedisAddr string
	RedisPwd  string
	RedisDB   int

	// Kafka
	KafkaBrokers           []string
	KafkaTopicEvents       string
	KafkaTopicNotification string
	KafkaGroupID           string

	// JWT
	JWTAlg           string
	JWTSecret        string
	JWTPublicKeyPath string
}

func (c *Config) Development() bool { return c.AppEnv != "production" }

// Load reads configuration from config.yaml (if present) with
// environment variable overrides. A .env file is honored for local runs.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("SHUTDOWN_TIMEOUT", 10)
	viper.SetDefault("MONGO_DB", "voyora_messaging")
	viper.SetDefault("KAFKA_TOPIC_EVENTS", "messaging.events")
	viper.SetDefault("KAFKA_TOPIC_NOTIFICATIONS", "notifications.raw")
	viper.SetDefault("KAFKA_GROUP_ID", "messaging-service")
	viper.SetDefault("JWT_ALG", "HS256")

	cfg := &Config{
		AppEnv:                 viper.GetString("APP_ENV"),
		AppPort:                viper.GetString("APP_PORT"),
		ShutdownTimeout:        viper.GetDuration("SHUTDOWN_TIMEOUT") * time.Second,
		MongoURI:               viper.GetString("MONGO_URI"),
		MongoDB:                viper.GetString("MONGO_DB"),
		RedisAddr:              viper.GetString("REDIS_ADDR"),
		RedisPwd:               viper.GetString("REDIS_PASSWORD"),
		RedisDB:                viper.GetInt("REDIS_DB"),
		KafkaBrokers:           splitList(viper.GetString("KAFKA_BROKERS")),
		KafkaTopicEvents:       viper.GetString("KAFKA_TOPIC_EVENTS"),
		KafkaTopicNotification: viper.GetString("KAFKA_TOPIC_NOTIFICATIONS"),
		KafkaGroupID:           viper.GetString("KAFKA_GROUP_ID"),
		JWTAlg:                 strings.ToUpper(viper.GetString("JWT_ALG")),
		JWTSecret:              viper.GetString("JWT_SECRET"),
		JWTPublicKeyPath:       viper.GetString("JWT_PUBLIC_KEY_PATH"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.MongoURI == "" {
		return errors.New("MONGO_URI missing")
	}
	switch cfg.JWTAlg {
	case "HS256":
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET required for HS256")
		}
	case "RS256":
		if cfg.JWTPublicKeyPath == "" {
			return errors.New("JWT_PUBLIC_KEY_PATH required for RS256")
		}
	default:
		return errors.New("invalid JWT_ALG (use HS256 or RS256)")
	}
	return nil
}
