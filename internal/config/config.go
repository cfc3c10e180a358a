package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Derivation DerivationConfig `mapstructure:"derivation"`
	Events     EventsConfig     `mapstructure:"events"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Cron       CronConfig       `mapstructure:"cron"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type AuthConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// DerivationConfig seeds the capability-token derivation. The secret must be
// stable across restarts or previously issued credentials stop verifying.
type DerivationConfig struct {
	Secret string `mapstructure:"secret"`
}

type EventsConfig struct {
	BufferSize int         `mapstructure:"buffer_size"`
	LogSink    bool        `mapstructure:"log_sink"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Stream    string `mapstructure:"stream"`
	MaxStream int64  `mapstructure:"max_stream"`
}

type RiskConfig struct {
	MaxTotalAllocationPct int     `mapstructure:"max_total_allocation_pct"`
	MaxWeightedRiskScore  float64 `mapstructure:"max_weighted_risk_score"`
	APYShortfallWarnBps   int64   `mapstructure:"apy_shortfall_warn_bps"`
}

type CronConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type SnapshotConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type ReconcileConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JETSON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "jetson")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("derivation.secret", "")
	v.SetDefault("events.buffer_size", 256)
	v.SetDefault("events.log_sink", true)
	v.SetDefault("events.redis.enabled", false)
	v.SetDefault("events.redis.addr", "localhost:6379")
	v.SetDefault("events.redis.password", "")
	v.SetDefault("events.redis.db", 0)
	v.SetDefault("events.redis.stream", "jetson:events")
	v.SetDefault("events.redis.max_stream", 10000)
	v.SetDefault("risk.max_total_allocation_pct", 100)
	v.SetDefault("risk.max_weighted_risk_score", 60)
	v.SetDefault("risk.apy_shortfall_warn_bps", 200)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("snapshot.enabled", true)
	v.SetDefault("snapshot.schedule", "@hourly")
	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.schedule", "@every 5m")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
