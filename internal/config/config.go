// Package config 提供配置管理
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/optimizer"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	API       APIConfig       `envPrefix:"API_"`
	Optimizer OptimizerConfig `envPrefix:"OPTIMIZER_"`
	Weights   WeightsConfig   `envPrefix:"WEIGHT_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `env:"NAME" envDefault:"roster"`
	Env       string `env:"ENV" envDefault:"development"`
	Port      int    `env:"PORT" envDefault:"7012"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"` // console/json
}

// DatabaseConfig 数据库配置；未启用时排班结果只保存在内存中
type DatabaseConfig struct {
	Enabled         bool          `env:"ENABLED" envDefault:"false"`
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	Name            string        `env:"NAME" envDefault:"roster"`
	User            string        `env:"USER" envDefault:"roster"`
	Password        string        `env:"PASSWORD"`
	SSLMode         string        `env:"SSL_MODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"4194304"`

	// API_KEYS=key1:write,key2:read；为空时不校验密钥
	Keys       map[string]string `env:"KEYS"`
	RateLimit  int               `env:"RATE_LIMIT" envDefault:"0"` // 每个客户端每个窗口的请求数，0 不限流
	RateWindow time.Duration     `env:"RATE_WINDOW" envDefault:"1m"`
}

// OptimizerConfig 退火参数默认值，请求中可以覆盖
type OptimizerConfig struct {
	InitialTemp   float64 `env:"INITIAL_TEMP" envDefault:"1000"`
	CoolingRate   float64 `env:"COOLING_RATE" envDefault:"0.995"`
	MaxIterations int     `env:"MAX_ITERATIONS" envDefault:"10000"`
	Seed          int64   `env:"SEED" envDefault:"1"`
	Chains        int     `env:"CHAINS" envDefault:"1"`
}

// Options 转换为优化器配置
func (c OptimizerConfig) Options() *optimizer.OptimizationConfig {
	return &optimizer.OptimizationConfig{
		InitialTemp:   c.InitialTemp,
		CoolingRate:   c.CoolingRate,
		MaxIterations: c.MaxIterations,
		Seed:          c.Seed,
		Chains:        c.Chains,
	}
}

// WeightsConfig 软目标默认权重
type WeightsConfig struct {
	LaborCost  float64 `env:"LABOR_COST" envDefault:"1"`
	Fairness   float64 `env:"FAIRNESS" envDefault:"1"`
	Preference float64 `env:"PREFERENCE" envDefault:"1"`
}

// Weights 转换为模型权重
func (c WeightsConfig) Weights() model.Weights {
	return model.Weights{
		model.WeightLaborCost:  c.LaborCost,
		model.WeightFairness:   c.Fairness,
		model.WeightPreference: c.Preference,
	}
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Optimizer.CoolingRate <= 0 || c.Optimizer.CoolingRate >= 1 {
		return fmt.Errorf("OPTIMIZER_COOLING_RATE 必须在 (0, 1) 之间: %v", c.Optimizer.CoolingRate)
	}
	if c.Optimizer.MaxIterations < 0 {
		return fmt.Errorf("OPTIMIZER_MAX_ITERATIONS 不能为负数: %d", c.Optimizer.MaxIterations)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT 不能为负数: %d", c.API.RateLimit)
	}
	for key, scope := range c.API.Keys {
		if key == "" || (scope != "read" && scope != "write") {
			return fmt.Errorf("API_KEYS 的权限只能是 read 或 write: %q", scope)
		}
	}
	if c.Optimizer.Chains < 1 {
		return fmt.Errorf("OPTIMIZER_CHAINS 至少为 1: %d", c.Optimizer.Chains)
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}
