package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server ServerConfig `mapstructure:"server"` // 服务器配置
	Chain  ChainConfig  `mapstructure:"chain"`  // 链上 RPC 配置
	Store  StoreConfig  `mapstructure:"store"`  // 市场存储配置
	Market MarketConfig `mapstructure:"market"` // 市场引擎配置
	Log    LogConfig    `mapstructure:"log"`    // 日志配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// ChainConfig JSON-RPC 节点配置（Alchemy Base）
type ChainConfig struct {
	RPCURL  string `mapstructure:"rpc_url"` // 完整 RPC 地址，非空时优先于 network+api_key
	Network string `mapstructure:"network"` // Alchemy 网络名，如 base-mainnet / base-sepolia
	APIKey  string `mapstructure:"api_key"` // Alchemy API Key
	Timeout int    `mapstructure:"timeout"` // 请求超时（秒），0 表示使用 transport 默认
	Proxy   string `mapstructure:"proxy"`   // 代理地址
}

// StoreConfig 市场集合的持久化配置
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`            // memory / badger / redis / postgres
	Key             string        `mapstructure:"key"`               // KV 存储固定 key
	Path            string        `mapstructure:"path"`              // badger 数据目录
	DSN             string        `mapstructure:"dsn"`               // postgres DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	RedisAddr       string        `mapstructure:"redis_addr"`        // redis 地址
	RedisPassword   string        `mapstructure:"redis_password"`    // redis 密码
	RedisDB         int           `mapstructure:"redis_db"`          // redis 库
}

// MarketConfig 市场引擎配置
type MarketConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // PENDING 市场供应量刷新间隔
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug/info/warn/error
	File       string `mapstructure:"file"`        // 日志文件，为空只输出控制台
	MaxSize    int    `mapstructure:"max_size"`    // 单文件最大 MB
	MaxBackups int    `mapstructure:"max_backups"` // 保留旧文件数
	MaxAge     int    `mapstructure:"max_age"`     // 保留天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩
}

const (
	// DefaultStoreKey 与前端 localStorage 使用的 key 保持一致
	DefaultStoreKey        = "prediction-markets"
	defaultRefreshInterval = 10 * time.Second
	defaultNetwork         = "base-mainnet"
)

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load()

	// 2. 读取 config.yaml
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("chain.network", defaultNetwork)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.key", DefaultStoreKey)
	v.SetDefault("store.path", "./data/markets")
	v.SetDefault("market.refresh_interval", defaultRefreshInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("ALCHEMY_API_KEY"); v != "" {
		cfg.Chain.APIKey = v
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("RPC_PROXY"); v != "" {
		cfg.Chain.Proxy = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Store.RedisPassword = v
	}
}

// Validate 启动前检查必填项
func (c *Config) Validate() error {
	if c.Chain.Endpoint() == "" {
		return fmt.Errorf("chain.rpc_url 或 chain.api_key 必填")
	}
	switch c.Store.Driver {
	case "memory", "badger", "redis", "postgres":
	default:
		return fmt.Errorf("不支持的 store.driver: %s", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store.driver=postgres 时 store.dsn 必填")
	}
	if c.Store.Driver == "redis" && c.Store.RedisAddr == "" {
		return fmt.Errorf("store.driver=redis 时 store.redis_addr 必填")
	}
	if c.Market.RefreshInterval <= 0 {
		c.Market.RefreshInterval = defaultRefreshInterval
	}
	if c.Store.Key == "" {
		c.Store.Key = DefaultStoreKey
	}
	return nil
}

// Endpoint 返回最终使用的 RPC 地址
func (c *ChainConfig) Endpoint() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	if c.APIKey == "" {
		return ""
	}
	network := c.Network
	if network == "" {
		network = defaultNetwork
	}
	return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", strings.TrimSpace(network), c.APIKey)
}
