// config реализует конфигурацию feed-service и feed-cli:
// загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	Ops        OpsConfig        `yaml:"ops"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	API        APIConfig        `yaml:"api"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
	Storage    StorageConfig    `yaml:"storage"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Redis      RedisConfig      `yaml:"redis"`
	S3         S3Config         `yaml:"s3"`
	Avatar     AvatarConfig     `yaml:"avatar"`
	Seed       SeedConfig       `yaml:"seed"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
}

// HTTPConfig — listener REST API.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// OpsConfig — служебный HTTP (livez/healthz/metrics).
type OpsConfig struct {
	Host string `yaml:"host" env:"OPS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"OPS_PORT" env-default:"8081"`
}

// GRPCConfig — gRPC health-сервер.
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50060"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// Addr возвращает адрес в формате host:port.
func (o OpsConfig) Addr() string {
	return net.JoinHostPort(o.Host, o.Port)
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// APIConfig — параметры REST-роутера.
type APIConfig struct {
	// BasePath — префикс всех маршрутов API ("" — корень).
	BasePath string `yaml:"base_path" env:"API_BASE_PATH" env-default:"/api"`
}

// TimeoutConfig — общий дедлайн обработки запроса.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"5s"`
}

// StorageConfig — выбор реализации хранилища.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
}

// PostgresConfig — подключение к PostgreSQL (storage.driver=postgres).
type PostgresConfig struct {
	URL string `yaml:"url" env:"POSTGRES_URL"`
	// SkipMigrate отключает применение встроенной схемы при старте.
	SkipMigrate bool `yaml:"skip_migrate" env:"POSTGRES_SKIP_MIGRATE"`
}

// MongoConfig — подключение к MongoDB (storage.driver=mongo).
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGO_URL"`
}

// RedisConfig — опциональный кэш профилей. Пустой URL отключает кэш.
type RedisConfig struct {
	URL    string        `yaml:"url" env:"REDIS_URL"`
	Prefix string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"feed:profile:"`
	TTL    time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"1m"`
}

// S3Config — опциональное хранилище аватаров. Пустой Endpoint отключает аватары.
type S3Config struct {
	Endpoint      string        `yaml:"endpoint" env:"S3_ENDPOINT"`
	RootUser      string        `yaml:"root_user" env:"S3_ROOT_USER"`
	RootPassword  string        `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket        string        `yaml:"bucket" env:"S3_BUCKET"`
	PresignTTL    time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL" env-default:"10m"`
	PublicBaseURL string        `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
}

// Enabled сообщает, сконфигурировано ли S3.
func (s S3Config) Enabled() bool {
	return strings.TrimSpace(s.Endpoint) != ""
}

// AvatarConfig — ограничения на загружаемые аватары.
type AvatarConfig struct {
	MaxSizeBytes        int64    `yaml:"max_size_bytes" env:"AVATAR_MAX_SIZE_BYTES" env-default:"5242880"`
	AllowedContentTypes []string `yaml:"allowed_content_types" env:"AVATAR_ALLOWED_CONTENT_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/webp"`
}

// SeedConfig — демонстрационный каталог при старте.
type SeedConfig struct {
	Enabled bool `yaml:"enabled" env:"SEED_ENABLED"`
}

// ReconcilerConfig — периодический пересчёт счётчиков подписок. 0 отключает.
type ReconcilerConfig struct {
	Interval time.Duration `yaml:"interval" env:"RECONCILE_INTERVAL" env-default:"0s"`
}

// ClientConfig — конфигурация feed-cli.
type ClientConfig struct {
	BaseURL  string        `yaml:"base_url" env:"FEED_BASE_URL" env-default:"http://127.0.0.1:8080/api"`
	Timeout  time.Duration `yaml:"timeout" env:"FEED_TIMEOUT" env-default:"5s"`
	ViewerID string        `yaml:"viewer_id" env:"FEED_VIEWER_ID"`
	Username string        `yaml:"username" env:"FEED_USERNAME"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию сервиса по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadClient загружает конфигурацию feed-cli по тем же правилам, что и Load.
func LoadClient(path string) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// load выбирает источник по приоритету и читает его в dst.
func load(path string, dst any) error {
	// чтение файла + overlay ENV.
	tryRead := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, dst); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(dst); err != nil {
			return fmt.Errorf("failed to overlay env: %w", err)
		}

		return nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(dst); err != nil {
		return fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres.url is required for storage.driver=postgres")
		}
	case DriverMongo:
		if c.Mongo.URL == "" {
			return fmt.Errorf("mongo.url is required for storage.driver=mongo")
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory|postgres|mongo, got %q", c.Storage.Driver)
	}

	if bp := c.API.BasePath; bp != "" && (!strings.HasPrefix(bp, "/") || strings.HasSuffix(bp, "/")) {
		return fmt.Errorf("api.base_path must start with '/' and must not end with '/'")
	}

	if c.Timeouts.Request < 0 {
		return fmt.Errorf("timeouts.request must be >= 0")
	}

	if c.Redis.URL != "" && c.Redis.TTL <= 0 {
		return fmt.Errorf("redis.ttl must be > 0")
	}

	if c.S3.Enabled() {
		if c.S3.Bucket == "" || c.S3.RootUser == "" || c.S3.RootPassword == "" {
			return fmt.Errorf("s3.bucket, s3.root_user and s3.root_password are required when s3.endpoint is set")
		}

		if c.S3.PresignTTL <= 0 {
			return fmt.Errorf("s3.presign_ttl must be > 0")
		}

		if c.Avatar.MaxSizeBytes <= 0 {
			return fmt.Errorf("avatar.max_size_bytes must be > 0")
		}

		if len(c.Avatar.AllowedContentTypes) == 0 {
			return fmt.Errorf("avatar.allowed_content_types must not be empty")
		}
	}

	if c.Reconciler.Interval < 0 {
		return fmt.Errorf("reconciler.interval must be >= 0")
	}

	return nil
}

// validate — базовая валидация клиентской конфигурации.
func (c *ClientConfig) validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) URL")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}

	return nil
}
