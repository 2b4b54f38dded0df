// Package config handles configuration for the gantry command-line tools. The loading library
// itself is configured through functional options; this package only feeds those options from
// YAML files and tool defaults.
package config

import "time"

// Config holds all tool settings.
type Config struct {
	Loader  LoaderConfig  `yaml:"loader"`
	Report  ReportConfig  `yaml:"report"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoaderConfig holds pipeline settings.
type LoaderConfig struct {
	// UploadBudgetBytes caps how many GPU upload bytes one tick admits. 0 disables
	// amortization and uploads everything as soon as it decodes.
	UploadBudgetBytes uint64 `yaml:"upload_budget_bytes"`

	// TickInterval is the pause between pipeline ticks.
	TickInterval time.Duration `yaml:"tick_interval"`

	// Timeout aborts a load that has not settled in time.
	Timeout time.Duration `yaml:"timeout"`

	// DecodeWorkers caps concurrent image decodes. 0 picks the CPU count.
	DecodeWorkers int `yaml:"decode_workers"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	// Format selects the report format, "text" or "json".
	Format string `yaml:"format"`

	// Verbose includes per-node and per-primitive detail in reports.
	Verbose bool `yaml:"verbose"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum level to emit: debug, info, warn, or error.
	Level string `yaml:"level"`

	// LogFile enables rotated file logging when set.
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			UploadBudgetBytes: 8 << 20,
			TickInterval:      5 * time.Millisecond,
			Timeout:           2 * time.Minute,
			DecodeWorkers:     0,
		},
		Report: ReportConfig{
			Format:  "text",
			Verbose: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
