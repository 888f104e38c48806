// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config controls which procedures the pipeline optimizes and how far it
// pushes them. If some field is not defined in the config file, it will be
// empty/zero in the struct. Private fields are not populated from a yaml
// file, but computed after initialization.
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// statsreportfile is a file name in ReportsDir when ReportStats is true
	statsreportfile string

	// if the ProcFilter is specified
	procFilterRegex *regexp.Regexp
}

// Options are the flat pipeline settings.
type Options struct {
	// ReportsDir is the directory where reports will be stored. If the yaml
	// config file this config struct has been loaded from does not specify a
	// ReportsDir but sets ReportStats to true, then ReportsDir will be
	// created in the folder the binary is called.
	ReportsDir string `yaml:"reports-dir"`

	// ProcFilter restricts optimization to the procedures whose name matches
	// it. Procedures that do not match are still built but left unoptimized.
	ProcFilter string `yaml:"proc-filter"`

	// SkipSimplify can be set to true to skip control-flow simplification
	// (constant branch folding, suite contraction) after CFG construction.
	SkipSimplify bool `yaml:"skip-simplify"`

	// SkipLoadElimination can be set to true to run only dead-code
	// elimination on the dataflow form.
	SkipLoadElimination bool `yaml:"skip-load-elimination"`

	// ReportStats can be set to true, in which case per-procedure statistics
	// are reported in a file named stats-*.out in the reports directory.
	ReportStats bool `yaml:"report-stats"`

	// MaxPasses bounds the number of optimization rounds applied to each
	// procedure's dataflow form. If MaxPasses <= 0 the default is used.
	MaxPasses int `yaml:"max-passes"`

	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:      "",
		statsreportfile: "",
		Options: Options{
			ReportsDir:          "",
			ProcFilter:          "",
			SkipSimplify:        false,
			SkipLoadElimination: false,
			ReportStats:         false,
			MaxPasses:           DefaultMaxPasses,
			LogLevel:            int(InfoLevel),
			SilenceWarn:         false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if errYaml := yaml.Unmarshal(b, cfg); errYaml != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", errYaml)
	}

	cfg.sourceFile = filename

	if cfg.ReportStats {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	// Set the MaxPasses default if it is <= 0
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = DefaultMaxPasses
	}

	if cfg.ProcFilter != "" {
		r, err := regexp.Compile(cfg.ProcFilter)
		if err == nil {
			cfg.procFilterRegex = r
		}
	}

	return cfg, nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir

		reportFile, err := os.CreateTemp(c.ReportsDir, "stats-*.out")
		if err != nil {
			return fmt.Errorf("could not create report file for statistics")
		}
		c.statsreportfile = reportFile.Name()
		reportFile.Close() // the file will be reopened as needed
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
	}
	return nil
}

// StatsReportFile returns the file name that will contain the per-procedure
// statistics
func (c Config) StatsReportFile() string {
	return c.statsreportfile
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// MatchProcFilter returns true if the procedure name matches the procedure
// filter set in the config file. If no filter has been set in the config
// file, the regex will match anything and return true. This function safely
// considers the case where a filter has been specified by the user, but it
// could not be compiled to a regex. The safe case is to check whether the
// filter string is a prefix of the procedure name
func (c Config) MatchProcFilter(procname string) bool {
	if c.procFilterRegex != nil {
		return c.procFilterRegex.MatchString(procname)
	} else if c.ProcFilter != "" {
		return strings.HasPrefix(procname, c.ProcFilter)
	} else {
		return true
	}
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// ExceedsMaxPasses returns true if the input exceeds the maximum pass count
// of the configuration. If the configuration setting is <= 0, then this
// returns false
func (c Config) ExceedsMaxPasses(n int) bool {
	if c.MaxPasses <= 0 {
		return false
	}
	return n > c.MaxPasses
}
