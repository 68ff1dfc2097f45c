// Package config loads devcove settings from an optional YAML file, a .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// DEVCOVE_CLIENT_POLL_INTERVAL=10s.
const EnvPrefix = "DEVCOVE"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	JWTSecret   string   `mapstructure:"jwt_secret" validate:"required,min=32"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// VoteRate is the sustained number of vote mutations per second a
	// single user may issue; VoteBurst is the bucket size.
	VoteRate  float64 `mapstructure:"vote_rate"`
	VoteBurst int     `mapstructure:"vote_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type RedisConfig struct {
	// Address is empty when the unread-count cache is disabled.
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	// Brokers is empty when vote events are not published.
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ClientConfig is everything the sync core consumes from its host.
type ClientConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	LoginURL          string        `mapstructure:"login_url" validate:"required"`
	VotePath          string        `mapstructure:"vote_path" validate:"required,startswith=/"`
	NotificationsPath string        `mapstructure:"notifications_path" validate:"required,startswith=/"`
	MarkAllReadPath   string        `mapstructure:"mark_all_read_path" validate:"required,startswith=/"`
	PostsPath         string        `mapstructure:"posts_path" validate:"required,startswith=/"`
	CSRFPath          string        `mapstructure:"csrf_path" validate:"required,startswith=/"`
	PollInterval      time.Duration `mapstructure:"poll_interval" validate:"gte=1s"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	Token             string        `mapstructure:"token"`
	CSRFToken         string        `mapstructure:"csrf_token"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the client settings before any component is built.
func (c ClientConfig) Validate() error {
	return validateStruct("client", c)
}

// Validate checks the API settings before anything is opened. The
// session signing secret has no default.
func (c ServerConfig) Validate() error {
	return validateStruct("server", c)
}

func validateStruct(section string, v interface{}) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid %s config: %s", section, strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid %s config: %w", section, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.vote_rate", 5.0)
	v.SetDefault("server.vote_burst", 10)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "devcove")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.timeout", 2*time.Second)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "devcove.votes")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.login_url", "/login")
	v.SetDefault("client.vote_path", "/api/vote")
	v.SetDefault("client.notifications_path", "/api/notifications/count")
	v.SetDefault("client.mark_all_read_path", "/api/notifications/mark-all-read")
	v.SetDefault("client.posts_path", "/api/posts")
	v.SetDefault("client.csrf_path", "/api/csrf")
	v.SetDefault("client.poll_interval", 30*time.Second)
	v.SetDefault("client.request_timeout", 10*time.Second)
	v.SetDefault("client.token", "")
	v.SetDefault("client.csrf_token", "")
}

// legacyEnv keeps the variable names the backend has always read.
var legacyEnv = map[string]string{
	"server.port":       "PORT",
	"server.jwt_secret": "JWT_SECRET",
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_NAME",
	"database.sslmode":  "DB_SSLMODE",
}

// Load reads the config file at path (optional, may be empty) and applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}
