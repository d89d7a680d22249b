package config

import "time"

// Config holds the application configuration
type Config struct {
	Datadir    string           `mapstructure:"datadir"`
	Node       NodeConfig       `mapstructure:"node"`
	Stages     StagesConfig     `mapstructure:"stages"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	InfluxDB   InfluxDBConfig   `mapstructure:"influx"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type NodeConfig struct {
	RPC            []string `mapstructure:"rpc"`
	MaxConnections int      `mapstructure:"maxConnections"`
}

// StagesConfig carries the per-stage commit thresholds: how many entities a
// stage processes before the batch is committed.
type StagesConfig struct {
	Headers  StageConfig `mapstructure:"headers"`
	Bodies   StageConfig `mapstructure:"bodies"`
	TxLookup StageConfig `mapstructure:"txlookup"`
}

type StageConfig struct {
	CommitThreshold uint64 `mapstructure:"commitThreshold"`
}

const (
	DefaultHeadersThreshold  = 10_000
	DefaultBodiesThreshold   = 1_000
	DefaultTxLookupThreshold = 5_000
	defaultThreshold         = 1_000
)

// Threshold returns the configured commit threshold for a stage, falling
// back to the stage's default when unset.
func (c StagesConfig) Threshold(stage string) uint64 {
	switch stage {
	case "headers":
		if c.Headers.CommitThreshold > 0 {
			return c.Headers.CommitThreshold
		}
		return DefaultHeadersThreshold
	case "bodies":
		if c.Bodies.CommitThreshold > 0 {
			return c.Bodies.CommitThreshold
		}
		return DefaultBodiesThreshold
	case "txlookup":
		if c.TxLookup.CommitThreshold > 0 {
			return c.TxLookup.CommitThreshold
		}
		return DefaultTxLookupThreshold
	}
	return defaultThreshold
}

type DashboardConfig struct {
	Refresh time.Duration `mapstructure:"refresh"`
	// Plain forces line-by-line output even on a terminal
	Plain bool `mapstructure:"plain"`
}

type MonitoringConfig struct {
	// Prometheus listen address, e.g. ":9090"; empty disables the endpoint
	Prometheus string `mapstructure:"prometheus"`
	// Pprof listen address; empty disables it
	Pprof string `mapstructure:"pprof"`
}

type InfluxDBConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
