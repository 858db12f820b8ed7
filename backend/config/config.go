package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvProduction = "production"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Env        string     `mapstructure:"env"`
	Server     Server     `mapstructure:"server"`
	DB         DB         `mapstructure:"db"`
	JWT        JWT        `mapstructure:"jwt"`
	Redis      Redis      `mapstructure:"redis"`
	AI         AI         `mapstructure:"ai"`
	Onboarding Onboarding `mapstructure:"onboarding"`
	XP         XP         `mapstructure:"xp"`
	Chat       Chat       `mapstructure:"chat"`
	CORS       CORS       `mapstructure:"cors"`

	// AdminEmails is parsed from the comma separated admin.emails key.
	AdminEmails []string `mapstructure:"-"`
}

type Server struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DB struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DSN returns the Postgres connection string.
func (db DB) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		db.Host, db.User, db.Password, db.Name, db.Port, db.SSLMode)
}

type JWT struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// Redis is optional; an empty Addr keeps Founder OS progress in memory.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AI struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SystemPrompt string        `mapstructure:"system_prompt"`
}

type Onboarding struct {
	BaseAward int64 `mapstructure:"base_award"`
	// 0 disables the elevated starting tier.
	ElevatedThreshold int    `mapstructure:"elevated_threshold"`
	BaseTier          string `mapstructure:"base_tier"`
	ElevatedTier      string `mapstructure:"elevated_tier"`
}

type XP struct {
	LessonAward int64 `mapstructure:"lesson_award"`
	CourseAward int64 `mapstructure:"course_award"`
}

type Chat struct {
	RateLimit int `mapstructure:"rate_limit"` // requests per minute per user
}

type CORS struct {
	AllowOrigins string `mapstructure:"allow_origins"`
}

// LoadConfig reads an optional .env file, then defaults and environment
// variables. Nested keys map to env names with "." replaced by "_",
// e.g. db.host is DB_HOST.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("env", "APP_ENV")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	cfg.AdminEmails = splitList(v.GetString("admin.emails"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "teenskool")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", "teenskool.db")

	v.SetDefault("jwt.secret", "secret")
	v.SetDefault("jwt.ttl", "72h")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.system_prompt", "")

	v.SetDefault("onboarding.base_award", 100)
	v.SetDefault("onboarding.elevated_threshold", 4)
	v.SetDefault("onboarding.base_tier", "novice")
	v.SetDefault("onboarding.elevated_tier", "apprentice")

	v.SetDefault("xp.lesson_award", 10)
	v.SetDefault("xp.course_award", 200)

	v.SetDefault("chat.rate_limit", 20)
	v.SetDefault("admin.emails", "")
	v.SetDefault("cors.allow_origins", "*")
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown db.driver %q", ErrInvalidConfig, c.DB.Driver)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("%w: jwt.ttl must be positive", ErrInvalidConfig)
	}
	if c.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == "secret") {
		return fmt.Errorf("%w: JWT_SECRET must be set in production", ErrInvalidConfig)
	}
	if c.Onboarding.ElevatedThreshold < 0 {
		return fmt.Errorf("%w: onboarding.elevated_threshold must not be negative", ErrInvalidConfig)
	}
	if c.XP.LessonAward < 0 || c.XP.CourseAward < 0 || c.Onboarding.BaseAward < 0 {
		return fmt.Errorf("%w: xp awards must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// IsAdminEmail reports whether email is listed in admin.emails.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
