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

package analysis

import (
	"fmt"
	"io"
	"os"

	"github.com/awslabs/dynflow/analysis/cfg"
)

// CFGStats counts what a procedure's control-flow graph is made of.
type CFGStats struct {
	Blocks   int
	Suites   int
	Switches int
	Merges   int
	Yields   int

	// Ops counts the statements carried by suite blocks.
	Ops int
}

func (s CFGStats) String() string {
	return fmt.Sprintf("%d blocks (%d suites, %d switches, %d merges, %d yields), %d ops",
		s.Blocks, s.Suites, s.Switches, s.Merges, s.Yields, s.Ops)
}

// ComputeCFGStats walks the reachable blocks of a procedure's graph and
// tallies them by kind.
func ComputeCFGStats(code *cfg.Code) CFGStats {
	var stats CFGStats
	d := cfg.NewDFS(func(block cfg.Block) {
		stats.Blocks++
		switch b := block.(type) {
		case *cfg.Suite:
			stats.Suites++
			stats.Ops += len(b.Ops)
		case *cfg.Switch:
			stats.Switches++
		case *cfg.TypeSwitch:
			stats.Switches++
		case *cfg.Merge:
			stats.Merges++
		case *cfg.Yield:
			stats.Yields++
		}
	}, nil)
	d.Process(code.EntryTerminal)
	return stats
}

// ReportResults writes one line per procedure to w. Failed procedures
// report their error instead of statistics.
func ReportResults(w io.Writer, results []ProcedureResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s: FAILED: %v\n", r.Source.Name, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", r.Source.Name, r.Stats)
	}
}

// WriteStatsReport appends the per-procedure report to the stats file the
// config points at, when stats reporting is enabled.
func (s *State) WriteStatsReport(results []ProcedureResult) error {
	if !s.Config.ReportStats {
		return nil
	}
	filename := s.Config.StatsReportFile()
	if filename == "" {
		return nil
	}
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("could not open stats report file: %w", err)
	}
	defer f.Close()
	ReportResults(f, results)
	s.Logger.Infof("Stats written to %s", filename)
	return nil
}
