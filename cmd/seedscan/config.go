package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the seedscan configuration file
// (~/.config/seedscan/config.yaml). Numeric fields are pointers so we can
// distinguish "not set" from zero values.
type Config struct {
	Backend      string `yaml:"backend"`
	BitsPerIter  *int   `yaml:"bits_per_iter"`
	Workers      *int   `yaml:"workers"`
	Ranges       string `yaml:"ranges"`
	ReportEvery  *int   `yaml:"report_every"`
	FilterBits   *int   `yaml:"filter_bits"`
	VerifyBits   *int   `yaml:"verify_bits"`
	StateFile    string `yaml:"state_file"`
	Listen       string `yaml:"listen"`
	GeneratorCmd string `yaml:"generator_cmd"`
	VerifierCmd  string `yaml:"verifier_cmd"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "seedscan", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	cfg, _ := loadConfigFile(configPath())
	return cfg
}

func loadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyScanConfig applies config file defaults to scan options when the
// corresponding flag was not explicitly set.
func applyScanConfig(c *cli.Command, cfg Config, o *scanOptions) {
	if cfg.Backend != "" && !c.IsSet("backend") {
		backendName = cfg.Backend
	}
	if cfg.BitsPerIter != nil && !c.IsSet("bits-per-iter") {
		o.bitsPerIter = *cfg.BitsPerIter
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		o.workers = *cfg.Workers
	}
	if cfg.Ranges != "" && !c.IsSet("ranges") {
		o.ranges = cfg.Ranges
	}
	if cfg.ReportEvery != nil && !c.IsSet("report-every") {
		o.reportEvery = *cfg.ReportEvery
	}
	if cfg.FilterBits != nil && !c.IsSet("filter-bits") {
		o.filterBits = *cfg.FilterBits
	}
	if cfg.VerifyBits != nil && !c.IsSet("verify-bits") {
		o.verifyBits = *cfg.VerifyBits
	}
	if cfg.StateFile != "" && !c.IsSet("state-file") {
		o.stateFile = cfg.StateFile
	}
	if cfg.Listen != "" && !c.IsSet("listen") {
		o.listen = cfg.Listen
	}
	if cfg.GeneratorCmd != "" && !c.IsSet("generator-cmd") {
		o.generatorCmd = cfg.GeneratorCmd
	}
	if cfg.VerifierCmd != "" && !c.IsSet("verifier-cmd") {
		o.verifierCmd = cfg.VerifierCmd
	}
}
