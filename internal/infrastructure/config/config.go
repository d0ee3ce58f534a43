package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Usage       UsageConfig     `mapstructure:"usage"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Command     CommandConfig   `mapstructure:"command"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	MaxBodySize int64           `mapstructure:"max_body_size"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LLMConfig 語言模型供應商配置
type LLMConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Provider    string        `mapstructure:"provider"` // openrouter | openai | claude | gemini
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory | redis
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// UsageConfig 每位使用者的 AI 呼叫配額（固定視窗）
type UsageConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Tokens   int           `mapstructure:"tokens"`
	Window   time.Duration `mapstructure:"window"`
}

// RateLimitConfig HTTP 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// StorageConfig 儲存層設定
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"` // memory | postgres | mongo
	PostgresDSN     string        `mapstructure:"postgres_dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
	SeedDemoRecipes bool          `mapstructure:"seed_demo_recipes"`
}

// CommandConfig 指令管線設定
type CommandConfig struct {
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	UseAI               bool          `mapstructure:"use_ai"`
	AITimeout           time.Duration `mapstructure:"ai_timeout"`
	DefaultLocation     string        `mapstructure:"default_location"`
	ExpiringSoonDays    int           `mapstructure:"expiring_soon_days"`
	MaxRecipeResults    int           `mapstructure:"max_recipe_results"`
}

// SchedulerConfig 週期性清理排程
type SchedulerConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SweepSpec string `mapstructure:"sweep_spec"`
}

// MetricsConfig Prometheus 設定
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v)

	// 設定設定檔名稱和路徑
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"llm_provider:", v.GetString("llm.provider"),
		"llm_api_key:", maskAPIKey(v.GetString("llm.api_key")),
		"storage_driver:", v.GetString("storage.driver"),
	)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// bindEnv 綁定不帶 APP_ 前綴的常用環境變量
func bindEnv(v *viper.Viper) {
	v.BindEnv("llm.enabled", "LLM_ENABLED")
	v.BindEnv("llm.provider", "LLM_PROVIDER")
	v.BindEnv("llm.api_key", "LLM_API_KEY", "OPENROUTER_API_KEY")
	v.BindEnv("llm.model", "LLM_MODEL", "OPENROUTER_MODEL")
	v.BindEnv("llm.base_url", "LLM_BASE_URL")
	v.BindEnv("llm.max_tokens", "MODEL_MAX_TOKENS")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("cache.backend", "CACHE_BACKEND")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.postgres_dsn", "POSTGRES_DSN", "DATABASE_URL")
	v.BindEnv("storage.mongo_uri", "MONGO_URI")
	v.BindEnv("command.use_ai", "COMMAND_USE_AI")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "pantry-assistant")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "60s")

	// LLM 設定
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.model", "qwen/qwen2.5-72b-instruct:free")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", "30s")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "pantry:ai:")

	// AI 配額
	v.SetDefault("usage.enabled", true)
	v.SetDefault("usage.requests", 30)
	v.SetDefault("usage.tokens", 50000)
	v.SetDefault("usage.window", "1m")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 儲存設定
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.max_open_conns", 10)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.mongo_database", "pantry")
	v.SetDefault("storage.connect_timeout", "10s")
	v.SetDefault("storage.migrate_on_start", true)
	v.SetDefault("storage.seed_demo_recipes", false)

	// 指令管線
	v.SetDefault("command.confidence_threshold", 0.7)
	v.SetDefault("command.use_ai", false)
	v.SetDefault("command.ai_timeout", "8s")
	v.SetDefault("command.default_location", "Pantry")
	v.SetDefault("command.expiring_soon_days", 3)
	v.SetDefault("command.max_recipe_results", 5)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sweep_spec", "@every 10m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("max_body_size", 1<<20)
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Cache.Enabled {
		if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
			return fmt.Errorf("unsupported cache backend: %s", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	switch config.Storage.Driver {
	case "memory":
	case "postgres":
		if config.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required for the postgres driver")
		}
	case "mongo":
		if config.Storage.MongoURI == "" {
			return fmt.Errorf("mongo uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", config.Storage.Driver)
	}

	if config.LLM.Enabled {
		switch config.LLM.Provider {
		case "openrouter", "openai", "claude", "gemini":
		default:
			return fmt.Errorf("unsupported llm provider: %s", config.LLM.Provider)
		}
		if config.LLM.APIKey == "" {
			return fmt.Errorf("llm api key is required when llm is enabled")
		}
	}

	if config.Usage.Enabled && (config.Usage.Requests <= 0 || config.Usage.Window <= 0) {
		return fmt.Errorf("invalid usage limits")
	}

	if t := config.Command.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("confidence threshold must be within [0,1]")
	}

	return nil
}
