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

package cfg

import (
	"github.com/awslabs/dynflow/analysis/lang"
)

// Simplify cleans a freshly built or rewritten CFG: it kills fail and error
// edges that no operation can take, folds branches on constant conditions,
// collapses degenerate merges, contracts straight-line suite chains, and
// drops unreachable predecessors from the merges that remain.
func Simplify(code *Code) {
	killDeadFlow(code)
	optimize(code)
	collectGarbage(code)

	// Collapsing unreachable predecessors exposes new straight-line runs,
	// so rewrite once more.
	optimize(code)
	collectGarbage(code)
}

// exprCanFail reports whether evaluating e may raise a recoverable failure.
// Locals and constants are pure; loads hit the heap and may miss.
func exprCanFail(e lang.Expr) bool {
	switch e.(type) {
	case *lang.Local, *lang.Existing, *lang.BinOp:
		return false
	case *lang.Load:
		return true
	default:
		panic(e)
	}
}

// exprCanError reports whether evaluating e may raise a non-recoverable
// error.
func exprCanError(e lang.Expr) bool {
	switch e.(type) {
	case *lang.Local, *lang.Existing:
		return false
	case *lang.BinOp, *lang.Load:
		return true
	default:
		panic(e)
	}
}

func stmtCanFail(op lang.Stmt) bool {
	switch op := op.(type) {
	case *lang.Assign:
		return exprCanFail(op.Expr)
	case *lang.Discard:
		return exprCanFail(op.Expr)
	case *lang.Return:
		return op.Value != nil && exprCanFail(op.Value)
	case *lang.Store:
		return true
	default:
		return true
	}
}

func stmtCanError(op lang.Stmt) bool {
	switch op := op.(type) {
	case *lang.Assign:
		return exprCanError(op.Expr)
	case *lang.Discard:
		return exprCanError(op.Expr)
	case *lang.Return:
		return op.Value != nil && exprCanError(op.Value)
	case *lang.Store:
		return true
	default:
		return true
	}
}

// killDeadFlow removes fail and error exits that no operation in the block
// can actually take.
func killDeadFlow(code *Code) {
	kill := func(block Block) {
		switch block := block.(type) {
		case *Suite:
			fails, errors := false, false
			for _, op := range block.Ops {
				fails = fails || stmtCanFail(op)
				errors = errors || stmtCanError(op)
			}
			if !fails {
				block.KillExit(EdgeFail)
			}
			if !errors {
				block.KillExit(EdgeError)
			}
		case *Switch:
			if !exprCanFail(block.Cond) {
				block.KillExit(EdgeFail)
			}
			if !exprCanError(block.Cond) {
				block.KillExit(EdgeError)
			}
		}
	}
	dfs := NewDFS(nil, kill)
	dfs.Process(code.EntryTerminal)
}

// optimizer is the post-order rewrite pass: constant-branch folding, merge
// collapsing and suite contraction.
type optimizer struct{}

func (o *optimizer) visit(block Block) {
	switch block := block.(type) {
	case *Switch:
		o.foldSwitch(block)
	case *Merge:
		block.Simplify()
	case *Suite:
		o.contractSuite(block)
	}
}

// foldSwitch replaces a branch on a constant with the taken arm.
func (o *optimizer) foldSwitch(sw *Switch) {
	cond, ok := sw.Cond.(*lang.Existing)
	if !ok {
		return
	}

	takenName := EdgeTrue
	if !cond.Object.Truthy {
		takenName = EdgeFalse
	}

	taken := sw.Exit(takenName)
	fail := sw.Exit(EdgeFail)
	err := sw.Exit(EdgeError)

	s := NewSuite()
	sw.RedirectEntries(s)
	sw.Destroy()

	s.SetExit(EdgeFail, fail)
	s.SetExit(EdgeError, err)
	s.SetExit(EdgeNormal, taken)

	o.visit(s)
}

// contractSuite merges a run of suites into one block when their fail and
// error routing agrees. An empty suite is elided entirely, which keeps its
// fail and error edges from leaking onto whatever replaces it.
func (o *optimizer) contractSuite(s *Suite) {
	if len(s.Ops) == 0 {
		s.Simplify()
		return
	}

	next, ok := s.Exit(EdgeNormal).(*Suite)
	if !ok || next == nil {
		return
	}
	if !exitMatchesOrNil(s, next, EdgeFail) || !exitMatchesOrNil(s, next, EdgeError) {
		return
	}

	s.Ops = append(s.Ops, next.Ops...)
	s.ForwardExit(next, EdgeNormal)

	if s.Exit(EdgeFail) == nil {
		stealExit(s, next, EdgeFail)
	}
	if s.Exit(EdgeError) == nil {
		stealExit(s, next, EdgeError)
	}
	next.Destroy()
}

func exitMatchesOrNil(a, b Block, name EdgeName) bool {
	ae, be := a.Exit(name), b.Exit(name)
	return ae == nil || be == nil || ae == be
}

// stealExit moves from's named exit onto to.
func stealExit(to, from Block, name EdgeName) {
	target := from.Exit(name)
	if target == nil {
		return
	}
	from.KillExit(name)
	to.SetExit(name, target)
}

func optimize(code *Code) {
	o := &optimizer{}
	dfs := NewDFS(nil, o.visit)
	dfs.Process(code.EntryTerminal)
}

// collectGarbage removes predecessors that are no longer reachable from the
// entry terminal. Dropping a merge predecessor also drops the aligned phi
// arguments.
func collectGarbage(code *Code) {
	var merges []*Merge
	dfs := NewDFS(nil, func(block Block) {
		if m, ok := block.(*Merge); ok {
			merges = append(merges, m)
		}
	})
	dfs.Process(code.EntryTerminal)

	for _, m := range merges {
		var dead []Pred
		for _, p := range m.Preds() {
			if !dfs.Processed[p.Block] {
				dead = append(dead, p)
			}
		}
		for _, p := range dead {
			m.removePrev(p.Block, p.Name)
		}
		m.Simplify()
	}
}
