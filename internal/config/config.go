// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paiban/lineplan/pkg/logger"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/planner"
	"github.com/paiban/lineplan/pkg/scheduler/diagnose"
	"github.com/paiban/lineplan/pkg/scheduler/optimizer"
	"github.com/paiban/lineplan/pkg/scheduler/solver"
)

// FileEnv 指定 YAML 配置文件的环境变量
const FileEnv = "LINEPLAN_CONFIG"

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Planner  PlannerConfig  `yaml:"planner"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	APIKey    string `yaml:"api_key"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // postgres / sqlite
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	Path            string        `yaml:"path"` // sqlite 文件，":memory:" 为内存库
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int           `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	CORS      CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// PlannerConfig 排产引擎配置
type PlannerConfig struct {
	ShiftsPerDay      int           `yaml:"shifts_per_day"`
	Days              int           `yaml:"days"`
	Weeks             int           `yaml:"weeks"`
	BuildingSeparator string        `yaml:"building_separator"`
	BuildingPrefixLen int           `yaml:"building_prefix_len"` // 0 表示按分隔符
	ProjectOffset     int           `yaml:"project_offset"`
	ProjectLength     int           `yaml:"project_length"`
	SolveTimeout      time.Duration `yaml:"solve_timeout"`
	MaxNodes          int           `yaml:"max_nodes"`
	Epsilon           float64       `yaml:"epsilon"`
	UnmetWeight       float64       `yaml:"unmet_weight"`
	ShipmentObjective bool          `yaml:"shipment_objective"`
	RestrictToDueDate bool          `yaml:"restrict_to_due_date"`
	ExactDemand       bool          `yaml:"exact_demand"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "lineplan",
			Env:       "development",
			Port:      7012,
			LogLevel:  "info",
			LogFormat: "auto",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			Name:            "lineplan",
			User:            "lineplan",
			Password:        "lineplan",
			SSLMode:         "disable",
			Path:            "lineplan.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		API: APIConfig{
			RateLimit: 100,
			Timeout:   60 * time.Second,
			CORS: CORSConfig{
				Enabled: true,
				Origins: []string{"*"},
			},
		},
		Planner: PlannerConfig{
			ShiftsPerDay:      2,
			Days:              7,
			Weeks:             1,
			BuildingSeparator: "-",
			ProjectLength:     3,
			SolveTimeout:      30 * time.Second,
			MaxNodes:          20000,
			Epsilon:           1e-6,
			UnmetWeight:       10,
			ShipmentObjective: true,
			RestrictToDueDate: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load 加载配置：默认值，然后 LINEPLAN_CONFIG 指定的 YAML 文件，最后环境变量
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile 用 YAML 文件覆盖已有字段
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件 %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("解析配置文件 %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.Port = getEnvInt("APP_PORT", c.App.Port)
	c.App.LogLevel = getEnv("APP_LOG_LEVEL", c.App.LogLevel)
	c.App.LogFormat = getEnv("APP_LOG_FORMAT", c.App.LogFormat)
	c.App.APIKey = getEnv("APP_API_KEY", c.App.APIKey)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.API.RateLimit = getEnvInt("API_RATE_LIMIT", c.API.RateLimit)
	c.API.Timeout = getEnvDuration("API_TIMEOUT", c.API.Timeout)
	c.API.CORS.Enabled = getEnvBool("API_CORS_ENABLED", c.API.CORS.Enabled)

	p := &c.Planner
	p.ShiftsPerDay = getEnvInt("PLANNER_SHIFTS_PER_DAY", p.ShiftsPerDay)
	p.Days = getEnvInt("PLANNER_DAYS", p.Days)
	p.Weeks = getEnvInt("PLANNER_WEEKS", p.Weeks)
	p.BuildingSeparator = getEnv("PLANNER_BUILDING_SEPARATOR", p.BuildingSeparator)
	p.BuildingPrefixLen = getEnvInt("PLANNER_BUILDING_PREFIX_LEN", p.BuildingPrefixLen)
	p.ProjectOffset = getEnvInt("PLANNER_PROJECT_OFFSET", p.ProjectOffset)
	p.ProjectLength = getEnvInt("PLANNER_PROJECT_LENGTH", p.ProjectLength)
	p.SolveTimeout = getEnvDuration("PLANNER_SOLVE_TIMEOUT", p.SolveTimeout)
	p.MaxNodes = getEnvInt("PLANNER_MAX_NODES", p.MaxNodes)
	p.Epsilon = getEnvFloat("PLANNER_EPSILON", p.Epsilon)
	p.UnmetWeight = getEnvFloat("PLANNER_UNMET_WEIGHT", p.UnmetWeight)
	p.ShipmentObjective = getEnvBool("PLANNER_SHIPMENT_OBJECTIVE", p.ShipmentObjective)
	p.RestrictToDueDate = getEnvBool("PLANNER_RESTRICT_TO_DUE_DATE", p.RestrictToDueDate)
	p.ExactDemand = getEnvBool("PLANNER_EXACT_DEMAND", p.ExactDemand)

	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = getEnv("METRICS_PATH", c.Metrics.Path)
}

// Validate 检查配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.Planner.ShiftsPerDay <= 0 || c.Planner.Days <= 0 || c.Planner.Weeks <= 0 {
		return fmt.Errorf("排产周期无效: %d×%d×%d", c.Planner.ShiftsPerDay, c.Planner.Days, c.Planner.Weeks)
	}
	if c.Planner.BuildingSeparator == "" && c.Planner.BuildingPrefixLen <= 0 {
		return fmt.Errorf("厂房规则需要分隔符或前缀长度")
	}
	if c.Planner.ProjectLength <= 0 {
		return fmt.Errorf("项目编码长度必须为正数")
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

// Logger 返回日志配置
func (c *Config) Logger() logger.Config {
	l := logger.DefaultConfig()
	l.Level = c.App.LogLevel
	l.Format = c.App.LogFormat
	return l
}

// Horizon 返回排产周期
func (p PlannerConfig) Horizon() model.Horizon {
	return model.Horizon{ShiftsPerDay: p.ShiftsPerDay, Days: p.Days, Weeks: p.Weeks}
}

// Naming 返回产线与物料编码规则
func (p PlannerConfig) Naming() model.NamingRule {
	return model.NamingRule{
		BuildingSeparator: p.BuildingSeparator,
		BuildingPrefixLen: p.BuildingPrefixLen,
		ProjectOffset:     p.ProjectOffset,
		ProjectLength:     p.ProjectLength,
	}
}

// Session 返回排产会话配置
func (p PlannerConfig) Session() planner.Config {
	cfg := planner.DefaultConfig()
	cfg.Solver = solver.DefaultOptions()
	cfg.Solver.TimeLimit = p.SolveTimeout
	cfg.Solver.MaxNodes = p.MaxNodes
	cfg.Diagnose = diagnose.Options{Epsilon: p.Epsilon, UnmetWeight: p.UnmetWeight}
	cfg.Optimize = optimizer.Options{
		Mode:              optimizer.ModeFull,
		ExactDemand:       p.ExactDemand,
		ShipmentObjective: p.ShipmentObjective,
		RestrictToDueDate: p.RestrictToDueDate,
	}
	return cfg
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
