package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	DB       DBConfig       `yaml:"db"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Accounts AccountsConfig `yaml:"accounts"`
	Platform PlatformConfig `yaml:"platform"`
	TTS      TTSConfig      `yaml:"tts"`
}

type HTTPConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"` //nolint:gosec // config struct, not hardcoded cred
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"` //nolint:gosec // config struct, not hardcoded cred
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"` //nolint:gosec // config struct, not hardcoded cred
}

// AccountsConfig drives role resolution by account-domain suffix.
type AccountsConfig struct {
	StudentDomain  string   `yaml:"student_domain"`
	TeacherDomains []string `yaml:"teacher_domains"`
}

// PlatformConfig carries the behavioral knobs of the practice platform.
type PlatformConfig struct {
	Timezone           string        `yaml:"timezone"`
	OrphanWindowDays   int           `yaml:"orphan_window_days"`
	OrphanSweepPeriod  time.Duration `yaml:"orphan_sweep_period"`
	RosterRemovePolicy string        `yaml:"roster_remove_policy"`
}

type TTSConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

func Load() (*Config, error) {
	configPath := getConfigPath()
	data, err := os.ReadFile(configPath) //nolint:gosec // config path from env/flag
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	possiblePaths := []string{
		"config/config.yaml",
		"/etc/practice-service/config.yaml",
		"./config.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "config.yaml"
}

func setDefaults(cfg *Config) {
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}

	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}

	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 30 * 24 * time.Hour
	}

	if cfg.Accounts.StudentDomain == "" {
		cfg.Accounts.StudentDomain = "@id.local"
	}
	if len(cfg.Accounts.TeacherDomains) == 0 {
		cfg.Accounts.TeacherDomains = []string{"@naver.com", "@gmail.com"}
	}

	if cfg.Platform.Timezone == "" {
		cfg.Platform.Timezone = "Asia/Seoul"
	}
	if cfg.Platform.OrphanWindowDays == 0 {
		cfg.Platform.OrphanWindowDays = 7
	}
	if cfg.Platform.OrphanSweepPeriod == 0 {
		cfg.Platform.OrphanSweepPeriod = 6 * time.Hour
	}
	if cfg.Platform.RosterRemovePolicy == "" {
		cfg.Platform.RosterRemovePolicy = "preserve"
	}

	if cfg.TTS.Timeout == 0 {
		cfg.TTS.Timeout = 10 * time.Second
	}
}

func overrideFromEnv(cfg *Config) {
	if val := os.Getenv("HTTP_ADDRESS"); val != "" {
		cfg.HTTP.Address = val
	}

	if val := os.Getenv("DB_HOST"); val != "" {
		cfg.DB.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.DB.Port = port
		}
	}
	if val := os.Getenv("DB_USER"); val != "" {
		cfg.DB.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		cfg.DB.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		cfg.DB.DBName = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		cfg.DB.SSLMode = val
	}

	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}

	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		cfg.Kafka.Brokers = strings.Split(val, ",")
	}

	if val := os.Getenv("JWT_SECRET"); val != "" {
		cfg.Auth.JWTSecret = val
	}

	if val := os.Getenv("STUDENT_DOMAIN"); val != "" {
		cfg.Accounts.StudentDomain = val
	}
	if val := os.Getenv("TEACHER_DOMAINS"); val != "" {
		cfg.Accounts.TeacherDomains = strings.Split(val, ",")
	}

	if val := os.Getenv("PLATFORM_TIMEZONE"); val != "" {
		cfg.Platform.Timezone = val
	}
	if val := os.Getenv("ORPHAN_WINDOW_DAYS"); val != "" {
		if days, err := strconv.Atoi(val); err == nil {
			cfg.Platform.OrphanWindowDays = days
		}
	}
	if val := os.Getenv("ROSTER_REMOVE_POLICY"); val != "" {
		cfg.Platform.RosterRemovePolicy = val
	}

	if val := os.Getenv("TTS_BASE_URL"); val != "" {
		cfg.TTS.BaseURL = val
	}
}

func validateConfig(cfg *Config) error {
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.DBName == "" {
		return fmt.Errorf("database configuration is incomplete")
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret must be set")
	}

	if cfg.Platform.OrphanWindowDays < 0 {
		return fmt.Errorf("orphan window must not be negative")
	}

	if _, err := time.LoadLocation(cfg.Platform.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", cfg.Platform.Timezone, err)
	}

	return nil
}
