package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config App Hub 配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Log        LogConfig        `mapstructure:"log"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PublicURL      string        `mapstructure:"public_url"`      // 对外访问地址，为空时根据请求头推断
	MaxUploadSize  int64         `mapstructure:"max_upload_size"` // 字节
	AllowedOrigins []string      `mapstructure:"allowed_origins"` // CORS 允许的来源，* 表示任意
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	Backend string          `mapstructure:"backend"` // local, s3
	Local   LocalStorage    `mapstructure:"local"`
	S3      S3StorageConfig `mapstructure:"s3"`
}

// LocalStorage 本地磁盘存储配置
type LocalStorage struct {
	Root string `mapstructure:"root"`
}

// S3StorageConfig 对象存储配置（兼容 MinIO）
type S3StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_time"`
	Issuer     string        `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"` // debug, info, warn, error
	OutputPath string `mapstructure:"output_path"`
	MaxSize    int    `mapstructure:"max_size"`    // MB
	MaxBackups int    `mapstructure:"max_backups"` // 保留的旧日志文件数
	MaxAge     int    `mapstructure:"max_age"`     // 天
	Compress   bool   `mapstructure:"compress"`
}

// RateLimitConfig 限流配置，作用于登录与下载接口
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ModerationConfig 审核策略配置
type ModerationConfig struct {
	// 已通过审核的应用上传新版本时是否回到待审核状态
	ResetApprovalOnNewVersion bool `mapstructure:"reset_approval_on_new_version"`
}

// AuditConfig 审计日志配置
type AuditConfig struct {
	Retention time.Duration `mapstructure:"retention"` // prune-audit 默认保留时长
}

// envKeys 需要支持环境变量覆盖的配置项
var envKeys = []string{
	"server.host", "server.port", "server.mode", "server.public_url", "server.max_upload_size",
	"database.driver", "database.dsn", "database.auto_migrate",
	"storage.backend", "storage.local.root",
	"storage.s3.bucket", "storage.s3.region", "storage.s3.endpoint",
	"storage.s3.access_key_id", "storage.s3.secret_access_key", "storage.s3.use_path_style",
	"jwt.secret", "jwt.expire_time", "jwt.issuer",
	"log.level", "log.output_path",
	"rate_limit.enabled", "rate_limit.requests_per_second", "rate_limit.burst",
	"moderation.reset_approval_on_new_version",
}

// Load 加载配置文件，环境变量（APPHUB_ 前缀，可来自 .env）优先于文件
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	v.SetEnvPrefix("APPHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", key, err)
		}
	}

	// 设置配置文件
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		// 读取配置文件
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析配置
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 设置默认值
	setDefaults(config)

	// 验证配置
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// setDefaults 设置默认值
func setDefaults(config *Config) {
	// Server默认值
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 3000
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 5 * time.Minute
	}
	if config.Server.MaxUploadSize == 0 {
		config.Server.MaxUploadSize = 20 << 20
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}

	// Database默认值
	if config.Database.Driver == "" {
		config.Database.Driver = "postgres"
	}
	if config.Database.MaxIdleConns == 0 {
		config.Database.MaxIdleConns = 10
	}
	if config.Database.MaxOpenConns == 0 {
		config.Database.MaxOpenConns = 50
	}
	if config.Database.ConnMaxLifetime == 0 {
		config.Database.ConnMaxLifetime = time.Hour
	}
	if config.Database.LogLevel == "" {
		config.Database.LogLevel = "warn"
	}

	// Storage默认值
	if config.Storage.Backend == "" {
		config.Storage.Backend = "local"
	}
	if config.Storage.Local.Root == "" {
		config.Storage.Local.Root = "uploads"
	}
	if config.Storage.S3.Region == "" {
		config.Storage.S3.Region = "us-east-1"
	}

	// JWT默认值
	if config.JWT.ExpireTime == 0 {
		config.JWT.ExpireTime = 24 * time.Hour
	}
	if config.JWT.Issuer == "" {
		config.JWT.Issuer = "apphub"
	}

	// Log默认值
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.OutputPath == "" {
		config.Log.OutputPath = "logs/apphub.log"
	}
	if config.Log.MaxSize == 0 {
		config.Log.MaxSize = 100
	}
	if config.Log.MaxBackups == 0 {
		config.Log.MaxBackups = 10
	}
	if config.Log.MaxAge == 0 {
		config.Log.MaxAge = 30
	}

	// 限流默认值
	if config.RateLimit.RequestsPerSecond == 0 {
		config.RateLimit.RequestsPerSecond = 5
	}
	if config.RateLimit.Burst == 0 {
		config.RateLimit.Burst = 20
	}

	// 审计日志默认保留 90 天
	if config.Audit.Retention == 0 {
		config.Audit.Retention = 90 * 24 * time.Hour
	}
}

// validate 验证配置
func validate(config *Config) error {
	// 验证服务模式
	validModes := map[string]bool{
		"debug":   true,
		"release": true,
		"test":    true,
	}
	if !validModes[config.Server.Mode] {
		return fmt.Errorf("invalid server mode: %s", config.Server.Mode)
	}

	// 验证数据库
	switch config.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database driver: %s", config.Database.Driver)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	// 验证JWT密钥
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.Log.Level] {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	// 验证存储配置
	switch config.Storage.Backend {
	case "local":
	case "s3":
		if config.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when backend is s3")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", config.Storage.Backend)
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}

	return nil
}

// Address 返回HTTP服务监听地址
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
