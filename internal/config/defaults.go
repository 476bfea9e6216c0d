// Package config provides configuration loading, defaults, and validation for
// the MixingCompass platform.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "mixingcompass"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "mixingcompass-group"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultFittingLoss           = "continuous_l2"
	DefaultFittingMaxIterations  = 3000
	DefaultFittingPopulationSize = 15
	DefaultFittingTolerance      = 1e-8

	DefaultSolventCSVPath = "data/solvents.csv"
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.  Fields
// that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0".  We leave it as-is (0 is also the default).
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 10 * time.Minute
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── Fitting ───────────────────────────────────────────────────────────────
	if cfg.Fitting.Loss == "" {
		cfg.Fitting.Loss = DefaultFittingLoss
	}
	if cfg.Fitting.MaxIterations == 0 {
		cfg.Fitting.MaxIterations = DefaultFittingMaxIterations
	}
	if cfg.Fitting.PopulationSize == 0 {
		cfg.Fitting.PopulationSize = DefaultFittingPopulationSize
	}
	if cfg.Fitting.Tolerance == 0 {
		cfg.Fitting.Tolerance = DefaultFittingTolerance
	}
	if cfg.Fitting.Timeout == 0 {
		cfg.Fitting.Timeout = 60 * time.Second
	}

	// ── Solvent ───────────────────────────────────────────────────────────────
	if cfg.Solvent.CSVPath == "" {
		cfg.Solvent.CSVPath = DefaultSolventCSVPath
	}
	if cfg.Solvent.CacheTTL == 0 {
		cfg.Solvent.CacheTTL = time.Hour
	}

	// ── Predictor ─────────────────────────────────────────────────────────────
	if cfg.Predictor.Timeout == 0 {
		cfg.Predictor.Timeout = 10 * time.Second
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
