package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zedaster/UrfuHhParser/pkg/tabular"
	"github.com/zedaster/UrfuHhParser/pkg/timestamp"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// PipelineConfig contains all configuration for a splitting run.
type PipelineConfig struct {
	TimestampStrategy string          `mapstructure:"timestamp_strategy"`
	Workers           int             `mapstructure:"workers"`
	ChunkSize         int             `mapstructure:"chunk_size"`
	TimestampColumn   string          `mapstructure:"timestamp_column"`
	CurrencyColumn    string          `mapstructure:"currency_column"`
	CleanedColumns    []string        `mapstructure:"cleaned_columns"`
	RequiredColumns   []string        `mapstructure:"required_columns"`
	Output            OutputConfig    `mapstructure:"output"`
	Frequency         FrequencyConfig `mapstructure:"frequency"`
	Logging           LoggingConfig   `mapstructure:"logging"`
}

// OutputConfig describes where and how results are written.
type OutputConfig struct {
	Dir           string `mapstructure:"dir"`
	Format        string `mapstructure:"format"`
	FrequencyXLSX bool   `mapstructure:"frequency_xlsx"`
	Rejects       bool   `mapstructure:"rejects"`
}

type FrequencyConfig struct {
	Threshold int `mapstructure:"threshold"`
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"strategy":      "timestamp_strategy",
	"workers":       "workers",
	"chunk-size":    "chunk_size",
	"timestamp-col": "timestamp_column",
	"currency-col":  "currency_column",
	"clean":         "cleaned_columns",
	"require":       "required_columns",
	"output":        "output.dir",
	"format":        "output.format",
	"xlsx":          "output.frequency_xlsx",
	"rejects":       "output.rejects",
	"threshold":     "frequency.threshold",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
}

// LoadPipeline loads the run configuration from the given path.
// If configPath is empty, it looks for hhsplit.yaml in the config/ directory.
// Environment variables with HHSPLIT_ prefix override config file values and
// changed flags from flags (which may be nil) override both.
func LoadPipeline(configPath string, flags *pflag.FlagSet) (*PipelineConfig, error) {
	v := viper.New()

	v.SetDefault("timestamp_strategy", string(timestamp.DefaultStrategy))
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("chunk_size", 10_000)
	v.SetDefault("timestamp_column", "published_at")
	v.SetDefault("currency_column", "salary_currency")
	v.SetDefault("cleaned_columns", []string{"name", "area_name"})
	v.SetDefault("required_columns", []string{"name"})
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.format", string(tabular.FormatCSV))
	v.SetDefault("output.frequency_xlsx", false)
	v.SetDefault("output.rejects", false)
	v.SetDefault("frequency.threshold", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("hhsplit")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HHSPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %q: %w", name, err)
				}
			}
		}
	}

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once, wrapped in ErrInvalidConfig.
func (c *PipelineConfig) Validate() error {
	var problems []string
	if !timestamp.IsValid(timestamp.Strategy(c.TimestampStrategy)) {
		problems = append(problems, fmt.Sprintf("timestamp_strategy %q is not one of %v", c.TimestampStrategy, timestamp.Strategies()))
	}
	if c.Workers <= 0 {
		problems = append(problems, fmt.Sprintf("workers must be > 0, got %d", c.Workers))
	}
	if c.ChunkSize <= 0 {
		problems = append(problems, fmt.Sprintf("chunk_size must be > 0, got %d", c.ChunkSize))
	}
	if strings.TrimSpace(c.TimestampColumn) == "" {
		problems = append(problems, "timestamp_column is empty")
	}
	if strings.TrimSpace(c.CurrencyColumn) == "" {
		problems = append(problems, "currency_column is empty")
	}
	if c.Output.Dir == "" {
		problems = append(problems, "output.dir is empty")
	}
	if !tabular.Format(c.Output.Format).Valid() {
		problems = append(problems, fmt.Sprintf("output.format %q is not csv or parquet", c.Output.Format))
	}
	if c.Frequency.Threshold < 0 {
		problems = append(problems, fmt.Sprintf("frequency.threshold must be >= 0, got %d", c.Frequency.Threshold))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
