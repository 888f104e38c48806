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

// dynflow runs the control-flow and dataflow pipeline over the built-in
// sample procedures and prints per-procedure statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/awslabs/dynflow/analysis"
	"github.com/awslabs/dynflow/analysis/config"
	"github.com/awslabs/dynflow/internal/formatutil"
	fn "github.com/awslabs/dynflow/internal/funcutil"
)

// flags
var (
	configPath = ""
	verbose    = false
	jobs       = 2
)

func init() {
	flag.StringVar(&configPath, "config", "", "config file path for the pipeline")
	flag.BoolVar(&verbose, "verbose", false, "verbose printing on standard output")
	flag.IntVar(&jobs, "jobs", 2, "number of procedures processed in parallel")
}

const usage = `Run the optimization pipeline over the sample procedures.

Usage:
  dynflow [-config config.yaml] [-verbose]

Use the -help flag to display the options.

Use -verbose for debugging output.
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	if err := doMain(); err != nil {
		fmt.Fprintf(os.Stderr, "dynflow: %s\n", err)
		os.Exit(1)
	}
}

func doMain() error {
	flag.Parse()

	cfg := config.NewDefault()
	if configPath != "" {
		config.SetGlobalConfig(configPath)
		var err error
		cfg, err = config.LoadGlobal()
		if err != nil {
			return err
		}
	}
	if verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	state := analysis.NewState(cfg)

	fmt.Fprintf(os.Stderr, formatutil.Faint("Building control-flow graphs")+"\n")
	results := analysis.RunCFGPipeline(state, sampleProcedures(), jobs)
	analysis.ReportResults(os.Stdout, results)
	failed := fn.Filter(results, func(r analysis.ProcedureResult) bool { return r.Err != nil })
	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, formatutil.Red(fmt.Sprintf("%d procedures failed", len(failed)))+"\n")
	}
	if err := state.WriteStatsReport(results); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, formatutil.Faint("Optimizing dataflow")+"\n")
	for _, sample := range sampleGraphs() {
		stats, err := state.OptimizeDataflow(sample.name, sample.graph)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", formatutil.Bold(sample.name), stats)
	}
	return nil
}
