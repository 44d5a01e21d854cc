// Package config 提供应用配置管理功能
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 WEEKLY_REPORT_SERVER_PORT 覆盖 server.port
const EnvPrefix = "WEEKLY_REPORT"

var globalConfig *Config

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	OSS       OSSConfig       `mapstructure:"oss"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Name            string `mapstructure:"name"`
	Mode            string `mapstructure:"mode"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	Path            string `mapstructure:"path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogMode         bool   `mapstructure:"log_mode"`
	SlowThreshold   int    `mapstructure:"slow_threshold"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Path
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Timezone,
		)
	}
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  int    `mapstructure:"dial_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Addr 返回 Redis 地址
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CacheConfig 报表缓存配置
type CacheConfig struct {
	Driver     string `mapstructure:"driver"` // redis, memory
	TTL        int    `mapstructure:"ttl"`    // 秒
	KeyPrefix  string `mapstructure:"key_prefix"`
	CleanupSec int    `mapstructure:"cleanup_interval"`
}

// TTLDuration 返回缓存有效期
func (c *CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// JWTConfig JWT配置
type JWTConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Secret            string `mapstructure:"secret"`
	AccessTokenExpire int    `mapstructure:"access_token_expire"`
	Issuer            string `mapstructure:"issuer"`
}

// AccessTokenDuration 返回访问令牌有效期
func (j *JWTConfig) AccessTokenDuration() time.Duration {
	return time.Duration(j.AccessTokenExpire) * time.Hour
}

// OSSConfig 对象存储配置
type OSSConfig struct {
	Provider        string `mapstructure:"provider"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
	CustomDomain    string `mapstructure:"custom_domain"`
	UploadDir       string `mapstructure:"upload_dir"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Caller     bool   `mapstructure:"caller"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	UploadLimit   int  `mapstructure:"upload_limit"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

// Window 返回限流时间窗口
func (r *RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// IngestConfig 表格导入配置
// 分类规则以数据形式存在，方便运营调整
type IngestConfig struct {
	ChunkSize       int      `mapstructure:"chunk_size"`
	MaxFileSize     int64    `mapstructure:"max_file_size"`
	ArchiveUploads  bool     `mapstructure:"archive_uploads"`
	SalesPrefixes   []string `mapstructure:"sales_prefixes"`
	FlagshipMarker  string   `mapstructure:"flagship_marker"`
	CountableTypes  []string `mapstructure:"countable_types"`
	SplitMarker     string   `mapstructure:"split_marker"`
	UnopenedLabel   string   `mapstructure:"unopened_label"`
	OtherVariant    string   `mapstructure:"other_variant"`
	DurationPattern string   `mapstructure:"duration_pattern"`
}

// Load 读取配置文件并叠加环境变量，configPath 为空时在 ./configs 和当前目录查找 config.yaml
// 找不到配置文件时只使用默认值
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

// Get 返回最近一次 Load 的结果，未加载时返回默认配置
func Get() *Config {
	if globalConfig == nil {
		globalConfig = Default()
	}
	return globalConfig
}

// Default 仅包含默认值的配置，不读取文件和环境变量
func Default() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

var defaults = map[string]interface{}{
	"server.name":             "weekly-report-backend",
	"server.mode":             "debug",
	"server.port":             8000,
	"server.read_timeout":     60,
	"server.write_timeout":    120,
	"server.shutdown_timeout": 10,

	"database.driver":            "postgres",
	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.password":          "postgres",
	"database.name":              "weekly_report",
	"database.sslmode":           "disable",
	"database.timezone":          "Asia/Seoul",
	"database.path":              "./data/weekly_report.db",
	"database.max_idle_conns":    10,
	"database.max_open_conns":    50,
	"database.conn_max_lifetime": 60,
	"database.log_mode":          false,
	"database.slow_threshold":    200,
	"database.auto_migrate":      true,

	"redis.host":           "localhost",
	"redis.port":           6379,
	"redis.password":       "",
	"redis.db":             0,
	"redis.pool_size":      20,
	"redis.min_idle_conns": 2,
	"redis.dial_timeout":   5,
	"redis.read_timeout":   3,
	"redis.write_timeout":  3,

	"cache.driver":           "memory",
	"cache.ttl":              600,
	"cache.key_prefix":       "weekly_report:",
	"cache.cleanup_interval": 1800,

	"jwt.enabled":             false,
	"jwt.secret":              "",
	"jwt.access_token_expire": 24,
	"jwt.issuer":              "weekly-report",

	"oss.provider":   "mock",
	"oss.upload_dir": "uploads/sales",

	"logger.level":       "debug",
	"logger.format":      "console",
	"logger.output":      "stdout",
	"logger.file_path":   "./logs/app.log",
	"logger.max_size":    100,
	"logger.max_backups": 10,
	"logger.max_age":     30,
	"logger.compress":    true,
	"logger.caller":      true,

	"metrics.enabled":   true,
	"metrics.namespace": "weekly_report",
	"metrics.path":      "/metrics",

	"tracing.enabled":      false,
	"tracing.service_name": "weekly-report-backend",
	"tracing.sample_rate":  1.0,

	"ratelimit.enabled":        false,
	"ratelimit.upload_limit":   30,
	"ratelimit.window_seconds": 60,

	"cors.allowed_origins":   []string{"*"},
	"cors.allowed_methods":   []string{"GET", "POST", "PUT", "OPTIONS"},
	"cors.allowed_headers":   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
	"cors.exposed_headers":   []string{"X-Request-ID"},
	"cors.allow_credentials": false,
	"cors.max_age":           86400,

	"ingest.chunk_size":       300,
	"ingest.max_file_size":    20 << 20,
	"ingest.archive_uploads":  false,
	"ingest.sales_prefixes":   []string{"S_", "S-", "[영업]", "영업"},
	"ingest.flagship_marker":  "1타",
	"ingest.countable_types":  []string{"신규", "재결제", "완납"},
	"ingest.split_marker":     "분할",
	"ingest.unopened_label":   "미개시환불",
	"ingest.other_variant":    "기타",
	"ingest.duration_pattern": `(\d+)(주|회)`,
}

// Validate 检查启动前必须满足的配置约束，一次返回全部问题
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver unsupported: %q", c.Database.Driver))
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.driver unsupported: %q", c.Cache.Driver))
	}
	switch c.Logger.Output {
	case "stdout", "file", "both":
	default:
		errs = append(errs, fmt.Errorf("logger.output unsupported: %q", c.Logger.Output))
	}
	if c.JWT.Enabled && c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required when jwt.enabled"))
	}
	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk_size must be positive: %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.max_file_size must be positive: %d", c.Ingest.MaxFileSize))
	}
	if c.RateLimit.Enabled && (c.RateLimit.UploadLimit <= 0 || c.RateLimit.WindowSeconds <= 0) {
		errs = append(errs, errors.New("ratelimit.upload_limit and ratelimit.window_seconds must be positive"))
	}
	return errors.Join(errs...)
}

// IsDebug 是否为调试模式
func (c *Config) IsDebug() bool {
	return c.Server.Mode == "debug"
}

// IsRelease 是否为发布模式
func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}
