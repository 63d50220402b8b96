package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Etcd      EtcdConfig      `mapstructure:"etcd"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServiceConfig points at the remote catalog/order service.
type ServiceConfig struct {
	Name    string        `mapstructure:"name"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RefreshConfig struct {
	OrdersInterval    time.Duration `mapstructure:"orders_interval"`
	CatalogInterval   time.Duration `mapstructure:"catalog_interval"`
	AnalyticsInterval time.Duration `mapstructure:"analytics_interval"`
	// A task is reported unhealthy after this many failed ticks in a row.
	UnhealthyAfter int `mapstructure:"unhealthy_after"`
}

type AnalyticsConfig struct {
	UseRemote bool `mapstructure:"use_remote"`
}

type ChatConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type GatewayConfig struct {
	// Name is the key the dashboard registers under in etcd.
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	// AdvertiseHost is the host published in etcd. Defaults to Host.
	AdvertiseHost string `mapstructure:"advertise_host"`
}

type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Host    string `mapstructure:"host"`
}

type EtcdConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type MongoDBConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "restaurant-service")
	v.SetDefault("service.base_url", "http://localhost:8000")
	v.SetDefault("service.timeout", 10*time.Second)

	v.SetDefault("refresh.orders_interval", 5*time.Second)
	v.SetDefault("refresh.catalog_interval", 30*time.Second)
	v.SetDefault("refresh.analytics_interval", 5*time.Second)
	v.SetDefault("refresh.unhealthy_after", 3)

	v.SetDefault("analytics.use_remote", false)
	v.SetDefault("chat.timeout", 15*time.Second)

	v.SetDefault("gateway.name", "orderdesk-dashboard")
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.advertise_host", "")
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 9090)

	v.SetDefault("etcd.enabled", false)
	v.SetDefault("etcd.endpoints", []string{"localhost:2379"})
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.ttl", 30*time.Minute)

	v.SetDefault("mongodb.enabled", false)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "orderdesk")
	v.SetDefault("mongodb.collection", "audit_logs")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Load reads the YAML file at configPath. An empty path loads defaults only.
// Any key can be overridden by ORDERDESK_<SECTION>_<KEY>.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("orderdesk")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Service.BaseURL == "" && !c.Etcd.Enabled {
		return fmt.Errorf("invalid config: service.base_url is required when etcd is disabled")
	}
	for name, d := range map[string]time.Duration{
		"refresh.orders_interval":    c.Refresh.OrdersInterval,
		"refresh.catalog_interval":   c.Refresh.CatalogInterval,
		"refresh.analytics_interval": c.Refresh.AnalyticsInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid config: %s must be positive", name)
		}
	}
	return nil
}

func (c *GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Advertised returns the host peers should dial. It is false when only a
// wildcard listen address is configured.
func (c *GatewayConfig) Advertised() (string, bool) {
	host := c.AdvertiseHost
	if host == "" {
		host = c.Host
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		return "", false
	}
	return host, true
}

func (c *GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
