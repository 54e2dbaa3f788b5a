package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	KPI    KPIConfig    `yaml:"kpi" mapstructure:"kpi"`
	Audit  AuditConfig  `yaml:"audit" mapstructure:"audit"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// BatchConfig configures batch recompute and scoring.
type BatchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// KPIConfig holds the leaderboard weighting strategy and monthly targets.
type KPIConfig struct {
	Name             string  `yaml:"name" mapstructure:"name"`
	AttendanceWeight float64 `yaml:"attendance_weight" mapstructure:"attendance_weight"`
	CallsWeight      float64 `yaml:"calls_weight" mapstructure:"calls_weight"`
	BehaviorWeight   float64 `yaml:"behavior_weight" mapstructure:"behavior_weight"`
	MeetingsWeight   float64 `yaml:"meetings_weight" mapstructure:"meetings_weight"`
	SalesWeight      float64 `yaml:"sales_weight" mapstructure:"sales_weight"`

	WorkingDays     int     `yaml:"working_days" mapstructure:"working_days"`
	DailyCalls      int     `yaml:"daily_calls" mapstructure:"daily_calls"`
	DailyBehavior   int     `yaml:"daily_behavior" mapstructure:"daily_behavior"`
	DailyMeetings   int     `yaml:"daily_meetings" mapstructure:"daily_meetings"`
	MonthlySalesEGP float64 `yaml:"monthly_sales_egp" mapstructure:"monthly_sales_egp"`
}

// AuditConfig configures the computation audit trail.
type AuditConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	RetryAttempts int  `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BROKERAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "brokerage.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 10)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("batch.max_concurrency", 8)
	v.SetDefault("kpi.name", "even")
	v.SetDefault("kpi.attendance_weight", 20)
	v.SetDefault("kpi.calls_weight", 20)
	v.SetDefault("kpi.behavior_weight", 20)
	v.SetDefault("kpi.meetings_weight", 20)
	v.SetDefault("kpi.sales_weight", 20)
	v.SetDefault("kpi.working_days", 22)
	v.SetDefault("kpi.daily_calls", 30)
	v.SetDefault("kpi.daily_behavior", 5)
	v.SetDefault("kpi.daily_meetings", 2)
	v.SetDefault("kpi.monthly_sales_egp", 5_000_000)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.retry_attempts", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. Sections are named by
// what the command needs: "store", "server".
func (c *Config) Validate(sections ...string) error {
	var errs []string
	for _, s := range sections {
		switch s {
		case "store":
			switch c.Store.Driver {
			case "sqlite", "postgres":
			default:
				errs = append(errs, "store.driver must be sqlite or postgres")
			}
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		case "server":
			if c.Server.Port < 0 || c.Server.Port > 65535 {
				errs = append(errs, "server.port must be between 0 and 65535")
			}
			if c.Server.RateLimitRPS < 0 {
				errs = append(errs, "server.rate_limit_rps must be >= 0")
			}
			if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
				errs = append(errs, "server.rate_limit_burst must be > 0 when rate limiting is on")
			}
		default:
			errs = append(errs, "unknown config section "+s)
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
