package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Backend  BackendConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  int // 小时
	RefreshTokenTTL int // 小时
	SessionCookie   string
}

// BackendConfig RAG 后端配置
// ChatTimeout/TitleTimeout/UploadTimeout 为客户端超时（秒），超时后请求被中止
type BackendConfig struct {
	BaseURL       string
	ChatTimeout   int
	TitleTimeout  int
	UploadTimeout int
	HistoryLimit  int
}

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("BRANDCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalizeTimeouts()

	return &cfg, nil
}

// normalizeTimeouts 保证服务器超时罩住所有后端客户端超时
//
// 聊天、标题、上传都在 handler 里同步等待后端，服务器的读/写超时
// 若短于其中任何一个，net/http 会在客户端超时生效前掐断连接，
// 慢上传收到的就是 EOF 而不是错误响应
func (c *Config) normalizeTimeouts() {
	slowest := c.Backend.ChatTimeout
	if c.Backend.TitleTimeout > slowest {
		slowest = c.Backend.TitleTimeout
	}
	if c.Backend.UploadTimeout > slowest {
		slowest = c.Backend.UploadTimeout
	}

	// 读超时覆盖慢速 multipart 请求体，写超时覆盖等待后端的响应
	if c.Server.ReadTimeout <= slowest {
		c.Server.ReadTimeout = slowest + timeoutMargin
	}
	if c.Server.WriteTimeout <= slowest {
		c.Server.WriteTimeout = slowest + timeoutMargin
	}
}

// timeoutMargin 服务器超时在最慢后端超时之上的余量（秒）
const timeoutMargin = 30

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ChatDeadline 聊天请求超时
func (c *BackendConfig) ChatDeadline() time.Duration {
	return time.Duration(c.ChatTimeout) * time.Second
}

// TitleDeadline 标题生成请求超时
func (c *BackendConfig) TitleDeadline() time.Duration {
	return time.Duration(c.TitleTimeout) * time.Second
}

// UploadDeadline 文件上传请求超时
func (c *BackendConfig) UploadDeadline() time.Duration {
	return time.Duration(c.UploadTimeout) * time.Second
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "brandchat")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	// 读/写超时须超过最慢的后端客户端超时（默认是 uploadTimeout 300s），
	// 偏短的配置会被 normalizeTimeouts 抬高
	v.SetDefault("server.readTimeout", 330)
	v.SetDefault("server.writeTimeout", 330)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "brandchat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.accessTokenTTL", 24)
	v.SetDefault("auth.refreshTokenTTL", 168)
	v.SetDefault("auth.sessionCookie", "bc_session")

	// Backend
	v.SetDefault("backend.baseUrl", "http://localhost:8099")
	v.SetDefault("backend.chatTimeout", 60)
	v.SetDefault("backend.titleTimeout", 30)
	v.SetDefault("backend.uploadTimeout", 300)
	v.SetDefault("backend.historyLimit", 12)
}
