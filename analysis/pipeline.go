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

// Package analysis ties the pipeline stages together: control-flow graph
// construction from the front end's AST, phi expansion into explicit
// transfers, and the dataflow optimization rounds.
package analysis

import (
	"fmt"
	"time"

	"github.com/awslabs/dynflow/analysis/cfg"
	"github.com/awslabs/dynflow/analysis/config"
	"github.com/awslabs/dynflow/analysis/dataflow"
	"github.com/awslabs/dynflow/analysis/lang"
	"github.com/awslabs/dynflow/internal/funcutil"
)

// State carries the configuration and logging shared by every stage of one
// pipeline run.
type State struct {
	Config *config.Config
	Logger *config.LogGroup
}

// NewState returns a state with a log group configured from the config.
func NewState(cfg *config.Config) *State {
	return &State{Config: cfg, Logger: config.NewLogGroup(cfg)}
}

// ProcedureResult is the outcome of the control-flow stage for one
// procedure.
type ProcedureResult struct {
	Source *lang.Code
	CFG    *cfg.Code
	Stats  CFGStats
	Err    error
}

// BuildCFG lowers one procedure to its control-flow graph: structured
// statements become blocks and edges, locals are renamed to single-definition
// form with phi entries at the joins, and the phi entries are expanded into
// explicit per-edge transfers. Simplification runs only for procedures
// selected by the config's filter.
func (s *State) BuildCFG(source *lang.Code) (*cfg.Code, error) {
	code := cfg.Build(source)
	if !s.Config.SkipSimplify && s.Config.MatchProcFilter(source.Name) {
		cfg.Simplify(code)
	}
	cfg.ConvertToSSA(code)
	if err := cfg.ExpandPhi(code); err != nil {
		return nil, fmt.Errorf("could not expand merges in %s: %w", source.Name, err)
	}
	return code, nil
}

// RunCFGPipeline builds the control-flow graphs of the procedures in
// parallel using numRoutines. Results are in the input order; a procedure
// that fails carries its error and a nil CFG.
func RunCFGPipeline(state *State, procedures []*lang.Code, numRoutines int) []ProcedureResult {
	state.Logger.Infof("Starting control-flow construction ...")
	start := time.Now()

	if numRoutines < 1 {
		numRoutines = 1
	}
	results := funcutil.MapParallel(procedures, func(source *lang.Code) ProcedureResult {
		result := ProcedureResult{Source: source}
		result.CFG, result.Err = state.BuildCFG(source)
		if result.Err == nil {
			result.Stats = ComputeCFGStats(result.CFG)
			state.Logger.Debugf("built %s: %s", source.Name, result.Stats)
		} else {
			state.Logger.Errorf("%v", result.Err)
		}
		return result
	}, numRoutines)

	state.Logger.Infof("Control-flow pass done (%.2f s).", time.Since(start).Seconds())
	return results
}

// OptimizeStats summarizes what the dataflow rounds did to one procedure.
type OptimizeStats struct {
	// Passes is the number of optimization rounds run.
	Passes int

	// NodesRemoved counts the graph nodes disconnected by dead-code
	// elimination over all rounds.
	NodesRemoved int

	// LoadsEliminated counts the loads replaced by available values over
	// all rounds.
	LoadsEliminated int
}

func (s OptimizeStats) String() string {
	return fmt.Sprintf("%d passes, %d nodes removed, %d loads eliminated",
		s.Passes, s.NodesRemoved, s.LoadsEliminated)
}

// OptimizeDataflow runs rounds of dead-code elimination and redundant-load
// elimination over a procedure's dataflow form until a round changes
// nothing or the config's pass bound is reached. The predicate graph is
// rebuilt each round: replacements can canonicalize predicates away.
func (s *State) OptimizeDataflow(name string, g *dataflow.Graph) (OptimizeStats, error) {
	var stats OptimizeStats
	if !s.Config.MatchProcFilter(name) {
		s.Logger.Debugf("skipping %s: filtered out", name)
		return stats, nil
	}

	start := time.Now()
	for {
		stats.Passes++
		changed := dataflow.EliminateDeadCode(g, s.Logger)
		stats.NodesRemoved += changed

		if !s.Config.SkipLoadElimination {
			pg, err := dataflow.BuildPredicateGraph(g)
			if err != nil {
				return stats, fmt.Errorf("could not order predicates of %s: %w", name, err)
			}
			eliminated := dataflow.EliminateRedundantLoads(g, pg, s.Logger)
			stats.LoadsEliminated += eliminated
			changed += eliminated
		}

		if changed == 0 {
			break
		}
		if s.Config.ExceedsMaxPasses(stats.Passes + 1) {
			if !s.Config.SilenceWarn {
				s.Logger.Warnf("%s: stopping after %d passes, graph still changing", name, stats.Passes)
			}
			break
		}
	}

	s.Logger.Infof("Optimized %s (%.2f s): %s", name, time.Since(start).Seconds(), stats)
	return stats, nil
}
