package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups the catalog server settings. Values come from the environment
// and optionally from a .env or config.env file; the environment wins.
type Config struct {
	App     AppConfig
	HTTP    ListenConfig
	GRPC    ListenConfig
	Storage StorageConfig
	Alerts  AlertConfig
	Cache   CacheConfig
	Workers WorkerConfig
	Tenants TenantConfig
}

type AppConfig struct {
	Env      string // development, staging, production
	LogLevel string
}

type ListenConfig struct {
	Host string
	Port int
}

func (c ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects where tenant snapshots are persisted.
type StorageConfig struct {
	Driver       string // memory, redis, mysql
	MySQLDSN     string
	RedisAddr    string
	FlushTimeout time.Duration
}

// AlertConfig selects the sink for stock status transitions.
type AlertConfig struct {
	Sink         string // log, redis, kafka
	Channel      string
	KafkaBrokers []string
	KafkaTopic   string
}

type CacheConfig struct {
	TenantQuota int
	MaxTenants  int
}

type WorkerConfig struct {
	Count     int
	QueueSize int
}

type TenantConfig struct {
	Strict    bool
	Bootstrap []string
	SeedDemo  bool
}

// Load reads the configuration. Expected names: APP_ENV, HTTP_PORT,
// STORAGE_DRIVER, ALERT_SINK, CACHE_TENANT_QUOTA and so on.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		HTTP: ListenConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		GRPC: ListenConfig{
			Host: getString(v, "GRPC_HOST", "0.0.0.0"),
			Port: getInt(v, "GRPC_PORT", 50051),
		},
		Storage: StorageConfig{
			Driver:       strings.ToLower(getString(v, "STORAGE_DRIVER", "memory")),
			MySQLDSN:     getString(v, "MYSQL_DSN", "root:password@tcp(localhost:3306)/catalog?parseTime=true"),
			RedisAddr:    getString(v, "REDIS_ADDR", "localhost:6379"),
			FlushTimeout: getDuration(v, "FLUSH_TIMEOUT", 5*time.Second),
		},
		Alerts: AlertConfig{
			Sink:         strings.ToLower(getString(v, "ALERT_SINK", "log")),
			Channel:      getString(v, "ALERT_CHANNEL", "catalog.stock-alerts"),
			KafkaBrokers: getList(v, "KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaTopic:   getString(v, "KAFKA_TOPIC", "catalog.stock-alerts"),
		},
		Cache: CacheConfig{
			TenantQuota: getInt(v, "CACHE_TENANT_QUOTA", 1024),
			MaxTenants:  getInt(v, "CACHE_MAX_TENANTS", 256),
		},
		Workers: WorkerConfig{
			Count:     getInt(v, "WORKER_COUNT", 4),
			QueueSize: getInt(v, "QUEUE_SIZE", 1024),
		},
		Tenants: TenantConfig{
			Strict:    getBool(v, "TENANT_STRICT", false),
			Bootstrap: getList(v, "BOOTSTRAP_TENANTS", nil),
			SeedDemo:  getBool(v, "SEED_DEMO", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "redis", "mysql":
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Alerts.Sink {
	case "log", "redis", "kafka":
	default:
		return fmt.Errorf("config: unknown ALERT_SINK %q", c.Alerts.Sink)
	}
	if c.Alerts.Sink == "kafka" && len(c.Alerts.KafkaBrokers) == 0 {
		return fmt.Errorf("config: ALERT_SINK=kafka needs KAFKA_BROKERS")
	}
	if c.Cache.TenantQuota <= 0 || c.Cache.MaxTenants <= 0 {
		return fmt.Errorf("config: cache sizes must be positive")
	}
	if c.Workers.Count <= 0 || c.Workers.QueueSize <= 0 {
		return fmt.Errorf("config: WORKER_COUNT and QUEUE_SIZE must be positive")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if v.IsSet(key) {
		if d := v.GetDuration(key); d > 0 {
			return d
		}
	}
	return def
}

// getList splits a comma separated value, dropping blanks.
func getList(v *viper.Viper, key string, def []string) []string {
	if !v.IsSet(key) {
		return def
	}
	var out []string
	for _, part := range strings.Split(v.GetString(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
