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

func local(name string) *lang.Local { return &lang.Local{Name: name} }

func constant(name string, truthy bool) *lang.Existing {
	return &lang.Existing{Object: &lang.Object{Name: name, Truthy: truthy}}
}

func assign(src lang.Expr, dst *lang.Local) *lang.Assign {
	return &lang.Assign{Expr: src, Targets: []*lang.Local{dst}}
}

func cond(e lang.Expr) *lang.Condition {
	return &lang.Condition{Preamble: &lang.Suite{}, Conditional: e}
}

func procedure(ops ...lang.Stmt) *lang.Code {
	return &lang.Code{Name: "test", Body: &lang.Suite{Ops: ops}}
}

// reachable collects every block reachable from the entry terminal.
func reachable(code *Code) map[Block]bool {
	dfs := NewDFS(nil, nil)
	dfs.Process(code.EntryTerminal)
	return dfs.Processed
}

func countKind[T Block](code *Code) int {
	n := 0
	for block := range reachable(code) {
		if _, ok := block.(T); ok {
			n++
		}
	}
	return n
}

func TestBuildLinear(t *testing.T) {
	x, y := local("x"), local("y")
	code := Build(procedure(
		assign(constant("one", true), x),
		assign(x, y),
		&lang.Return{Value: y},
	))

	suite, ok := code.EntryTerminal.Exit(EdgeEntry).(*Suite)
	if !ok {
		t.Fatalf("entry successor is %s, want a suite", code.EntryTerminal.Exit(EdgeEntry))
	}
	if len(suite.Ops) != 3 {
		t.Errorf("suite has %d ops, want 3", len(suite.Ops))
	}
	if !reachable(code)[code.NormalTerminal] {
		t.Errorf("normal terminal is unreachable")
	}
}

func TestBuildEmptyBody(t *testing.T) {
	code := Build(procedure())

	live := reachable(code)
	if !live[code.NormalTerminal] {
		t.Fatalf("normal terminal is unreachable")
	}
	if countKind[*Suite](code) != 0 {
		t.Errorf("empty body should not produce any suites")
	}
}

func TestBuildIfElse(t *testing.T) {
	c, x := local("c"), local("x")
	code := Build(procedure(
		&lang.Switch{
			Condition: cond(c),
			T:         &lang.Suite{Ops: []lang.Stmt{assign(constant("one", true), x)}},
			F:         &lang.Suite{Ops: []lang.Stmt{assign(constant("two", true), x)}},
		},
		&lang.Return{Value: x},
	))

	// Nothing precedes the branch, so the leading suite is elided and the
	// switch hangs directly off the entry terminal.
	sw, ok := code.EntryTerminal.Exit(EdgeEntry).(*Switch)
	if !ok {
		t.Fatalf("entry successor is %s, want a switch", code.EntryTerminal.Exit(EdgeEntry))
	}

	for _, name := range []EdgeName{EdgeTrue, EdgeFalse} {
		arm, ok := sw.Exit(name).(*Suite)
		if !ok {
			t.Fatalf("%s arm is %s, want a suite", name, sw.Exit(name))
		}
		m, ok := arm.Exit(EdgeNormal).(*Merge)
		if !ok {
			t.Fatalf("%s arm does not reach a merge", name)
		}
		if m.NumPrev() != 2 {
			t.Errorf("join merge has %d predecessors, want 2", m.NumPrev())
		}
	}
}

func TestBuildBothArmsDiverge(t *testing.T) {
	c := local("c")
	code := Build(procedure(
		&lang.Switch{
			Condition: cond(c),
			T:         &lang.Suite{Ops: []lang.Stmt{&lang.Return{Value: constant("one", true)}}},
			F:         &lang.Suite{Ops: []lang.Stmt{&lang.Return{Value: constant("two", true)}}},
		},
	))

	// Only the return, fail and error handler merges remain: the arms never
	// rejoin, so no join merge is created.
	if got := countKind[*Merge](code); got != 3 {
		t.Errorf("got %d merges, want the 3 handler merges", got)
	}
	if !reachable(code)[code.NormalTerminal] {
		t.Errorf("normal terminal is unreachable")
	}
}

func TestBuildUnreachableAfterReturn(t *testing.T) {
	x := local("x")
	code := Build(procedure(
		&lang.Return{Value: constant("one", true)},
		assign(constant("two", true), x),
	))

	suite := code.EntryTerminal.Exit(EdgeEntry).(*Suite)
	if len(suite.Ops) != 1 {
		t.Errorf("statements after return must be dropped, suite has %d ops", len(suite.Ops))
	}
}

func TestBuildWhile(t *testing.T) {
	c, x := local("c"), local("x")
	code := Build(procedure(
		&lang.While{
			Condition: cond(c),
			Body:      &lang.Suite{Ops: []lang.Stmt{assign(constant("one", true), x)}},
		},
		&lang.Return{Value: x},
	))

	var loop *Switch
	for block := range reachable(code) {
		if sw, ok := block.(*Switch); ok {
			loop = sw
		}
	}
	if loop == nil {
		t.Fatalf("no loop condition switch in the graph")
	}

	// The body must flow back to the loop header.
	body, ok := loop.Exit(EdgeTrue).(*Suite)
	if !ok {
		t.Fatalf("loop body is %s, want a suite", loop.Exit(EdgeTrue))
	}
	header, ok := body.Exit(EdgeNormal).(*Merge)
	if !ok {
		t.Fatalf("loop body does not return to a header merge")
	}
	if !reachable(code)[header] {
		t.Errorf("loop header unreachable")
	}
}

func TestBuildWhileBreakContinue(t *testing.T) {
	c, d := local("c"), local("d")
	code := Build(procedure(
		&lang.While{
			Condition: cond(c),
			Body: &lang.Suite{Ops: []lang.Stmt{
				&lang.Switch{
					Condition: cond(d),
					T:         &lang.Suite{Ops: []lang.Stmt{&lang.Break{}}},
					F:         &lang.Suite{Ops: []lang.Stmt{&lang.Continue{}}},
				},
			}},
		},
		&lang.Return{Value: c},
	))

	if !reachable(code)[code.NormalTerminal] {
		t.Errorf("break must reach code after the loop")
	}
}

func TestBuildYield(t *testing.T) {
	x := local("x")
	code := Build(procedure(
		assign(constant("one", true), x),
		&lang.Yield{Value: x},
		&lang.Return{Value: x},
	))

	if countKind[*Yield](code) != 1 {
		t.Fatalf("want exactly one yield block")
	}
	for block := range reachable(code) {
		if y, ok := block.(*Yield); ok {
			if _, ok := y.Exit(EdgeNormal).(*Suite); !ok {
				t.Errorf("yield successor is %s, want a suite", y.Exit(EdgeNormal))
			}
		}
	}
}

func TestBuildTypeSwitch(t *testing.T) {
	v, a, b := local("v"), local("a"), local("b")
	code := Build(procedure(
		&lang.TypeSwitch{
			Conditional: v,
			Cases: []*lang.TypeSwitchCase{
				{Binding: a, Body: &lang.Suite{Ops: []lang.Stmt{assign(a, local("r1"))}}},
				{Binding: b, Body: &lang.Suite{Ops: []lang.Stmt{assign(b, local("r2"))}}},
			},
		},
		&lang.Return{Value: v},
	))

	var ts *TypeSwitch
	for block := range reachable(code) {
		if s, ok := block.(*TypeSwitch); ok {
			ts = s
		}
	}
	if ts == nil {
		t.Fatalf("no type switch in the graph")
	}
	for i := 0; i < 2; i++ {
		arm, ok := ts.Exit(CaseEdge(i)).(*Suite)
		if !ok {
			t.Fatalf("case %d arm is %s, want a suite", i, ts.Exit(CaseEdge(i)))
		}
		// Binding assignment plus the case body's own op.
		if len(arm.Ops) != 2 {
			t.Errorf("case %d arm has %d ops, want 2", i, len(arm.Ops))
		}
	}
}

func TestSanityCheckAfterBuild(t *testing.T) {
	c, x := local("c"), local("x")
	code := Build(procedure(
		&lang.Switch{
			Condition: cond(c),
			T:         &lang.Suite{Ops: []lang.Stmt{assign(constant("one", true), x)}},
			F:         &lang.Suite{Ops: []lang.Stmt{&lang.Return{Value: x}}},
		},
		&lang.Return{Value: x},
	))

	for block := range reachable(code) {
		block.SanityCheck()
	}
}
