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
	"testing"

	"github.com/awslabs/dynflow/analysis/lang"
)

func TestSimplifyKillsImpossibleFlow(t *testing.T) {
	x, y := local("x"), local("y")
	code := Build(procedure(
		assign(constant("one", true), x),
		assign(x, y),
		&lang.Return{Value: y},
	))
	Simplify(code)

	live := reachable(code)
	if live[code.FailTerminal] {
		t.Errorf("pure assignments cannot fail, but the fail terminal is reachable")
	}
	if live[code.ErrorTerminal] {
		t.Errorf("pure assignments cannot error, but the error terminal is reachable")
	}
	if !live[code.NormalTerminal] {
		t.Errorf("normal terminal is unreachable")
	}
}

func TestSimplifyKeepsLoadFlow(t *testing.T) {
	o, x := local("o"), local("x")
	load := &lang.Load{
		Expr:      o,
		FieldKind: lang.AttributeField,
		Name:      constant("attr", true),
	}
	code := Build(procedure(
		assign(load, x),
		&lang.Return{Value: x},
	))
	Simplify(code)

	live := reachable(code)
	if !live[code.FailTerminal] {
		t.Errorf("a load may fail, but the fail terminal is unreachable")
	}
	if !live[code.ErrorTerminal] {
		t.Errorf("a load may error, but the error terminal is unreachable")
	}
}

func TestSimplifyFoldsConstantBranch(t *testing.T) {
	x := local("x")
	code := Build(procedure(
		&lang.Switch{
			Condition: cond(constant("true", true)),
			T:         &lang.Suite{Ops: []lang.Stmt{assign(constant("taken", true), x)}},
			F:         &lang.Suite{Ops: []lang.Stmt{assign(constant("culled", true), x)}},
		},
		&lang.Return{Value: x},
	))
	Simplify(code)

	if countKind[*Switch](code) != 0 {
		t.Fatalf("constant branch survived simplification")
	}

	var ops []lang.Stmt
	for block := range reachable(code) {
		if s, ok := block.(*Suite); ok {
			ops = append(ops, s.Ops...)
		}
	}
	for _, op := range ops {
		a, ok := op.(*lang.Assign)
		if !ok {
			continue
		}
		if src, ok := a.Expr.(*lang.Existing); ok && src.Object.Name == "culled" {
			t.Errorf("dead arm survived constant folding")
		}
	}
}

func TestSimplifyContractsSuites(t *testing.T) {
	x := local("x")
	code := Build(procedure(
		&lang.Switch{
			Condition: cond(constant("true", true)),
			T:         &lang.Suite{Ops: []lang.Stmt{assign(constant("one", true), x)}},
			F:         &lang.Suite{Ops: []lang.Stmt{assign(constant("two", true), x)}},
		},
		&lang.Return{Value: x},
	))
	Simplify(code)

	// After folding the constant branch and contracting the straight line,
	// a single suite should remain.
	if got := countKind[*Suite](code); got != 1 {
		t.Errorf("got %d suites, want 1", got)
	}
	for block := range reachable(code) {
		block.SanityCheck()
	}
}

func TestSimplifyCollapsesDegenerateMerges(t *testing.T) {
	c, x := local("c"), local("x")
	code := Build(procedure(
		&lang.Switch{
			Condition: cond(c),
			T:         &lang.Suite{Ops: []lang.Stmt{assign(constant("one", true), x)}},
			F:         &lang.Suite{Ops: []lang.Stmt{&lang.Return{Value: x}}},
		},
		&lang.Return{Value: x},
	))
	Simplify(code)

	// The join after the branch has a single live predecessor and must be
	// gone; only the return handler merge keeps multiple entries.
	for block := range reachable(code) {
		if m, ok := block.(*Merge); ok && m.NumPrev() < 2 {
			t.Errorf("degenerate merge %s survived simplification", m)
		}
	}
}
