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

package dataflow

import (
	"errors"
	"testing"

	"github.com/awslabs/dynflow/analysis/lang"
)

// branchFixture is the dataflow of a two-way branch whose arm predicates
// are gated and merged back into a join predicate the exit runs under.
type branchFixture struct {
	g *Graph

	hb0, hbT, hbF, hbJ *Hyperblock

	cond     *lang.Local
	condSlot *LocalSlot

	branch       *GenericOp
	pThen, pElse *PredicateSlot
	pJoin        *PredicateSlot
	exit         *Exit
}

func buildBranch() *branchFixture {
	f := &branchFixture{
		hb0: &Hyperblock{Name: "entry"},
		hbT: &Hyperblock{Name: "then"},
		hbF: &Hyperblock{Name: "else"},
		hbJ: &Hyperblock{Name: "join"},
	}
	f.g = NewGraph(f.hb0)

	f.cond = &lang.Local{Name: "c"}
	f.condSlot = f.g.NewLocal(f.hb0, f.cond)
	f.g.Entry.AddEntry(f.cond, f.condSlot)

	f.branch = f.g.NewGenericOp(f.hb0, &lang.Switch{})
	f.branch.SetPredicate(f.g.EntryPredicate)
	f.branch.AddLocalRead(f.cond, f.condSlot)
	f.pThen = f.g.NewPredicate(f.hbT, "then")
	f.pElse = f.g.NewPredicate(f.hbF, "else")
	f.branch.AddPredicate(f.pThen)
	f.branch.AddPredicate(f.pElse)

	gateT := f.g.NewGate(f.hbT)
	gateT.AddRead(f.pThen)
	outT := f.g.NewPredicate(f.hbT, "then out")
	gateT.AddModify(outT)

	gateF := f.g.NewGate(f.hbF)
	gateF.AddRead(f.pElse)
	outF := f.g.NewPredicate(f.hbF, "else out")
	gateF.AddModify(outF)

	join := f.g.NewMerge(f.hbJ)
	join.AddRead(outT)
	join.AddRead(outF)
	f.pJoin = f.g.NewPredicate(f.hbJ, "join")
	join.AddModify(f.pJoin)

	f.exit = f.g.NewExit(f.hbJ)
	f.exit.SetPredicate(f.pJoin)
	return f
}

func TestPredicateDominance(t *testing.T) {
	f := buildBranch()
	pg, err := BuildPredicateGraph(f.g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := pg.Entry()
	cases := []struct {
		name string
		a, b *PredicateSlot
		want bool
	}{
		{"entry over itself", entry, entry, true},
		{"entry over then", entry, f.pThen, true},
		{"entry over else", entry, f.pElse, true},
		{"entry over join", entry, f.pJoin, true},
		{"then over itself", f.pThen, f.pThen, true},
		{"then over else", f.pThen, f.pElse, false},
		{"then over join", f.pThen, f.pJoin, false},
		{"join over then", f.pJoin, f.pThen, false},
		{"join over entry", f.pJoin, entry, false},
	}
	for _, c := range cases {
		if got := pg.Dominates(c.a, c.b); got != c.want {
			t.Errorf("%s: Dominates(%v, %v) = %v, want %v", c.name, c.a, c.b, got, c.want)
		}
	}

	if pg.ExitPredicate() != f.pJoin {
		t.Errorf("exit predicate = %v, want %v", pg.ExitPredicate(), f.pJoin)
	}
}

func TestPredicateDominatorTree(t *testing.T) {
	f := buildBranch()
	pg, err := BuildPredicateGraph(f.g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tree := pg.Tree()
	if tree.Label != pg.Entry() {
		t.Fatalf("tree root = %v, want entry predicate", tree.Label)
	}
	if len(tree.Children) != 3 {
		t.Fatalf("entry should immediately dominate 3 predicates, got %d", len(tree.Children))
	}
	want := map[*PredicateSlot]bool{f.pThen: true, f.pElse: true, f.pJoin: true}
	for _, child := range tree.Children {
		if !want[child.Label] {
			t.Errorf("unexpected child %v", child.Label)
		}
		if len(child.Children) != 0 {
			t.Errorf("%v should be a leaf", child.Label)
		}
	}
}

func TestPredicateDominanceTransitive(t *testing.T) {
	hb0 := &Hyperblock{Name: "entry"}
	g := NewGraph(hb0)

	cond := &lang.Local{Name: "c"}
	condSlot := g.NewLocal(hb0, cond)
	g.Entry.AddEntry(cond, condSlot)

	// Three branches nested on each other's taken arms: entry gates outer,
	// outer gates mid, mid gates inner.
	hbOuter := &Hyperblock{Name: "outer"}
	hbMid := &Hyperblock{Name: "mid"}
	hbInner := &Hyperblock{Name: "inner"}

	outerBr := g.NewGenericOp(hb0, &lang.Switch{})
	outerBr.SetPredicate(g.EntryPredicate)
	outerBr.AddLocalRead(cond, condSlot)
	pOuter := g.NewPredicate(hbOuter, "outer")
	pOuterElse := g.NewPredicate(hbOuter, "outer else")
	outerBr.AddPredicate(pOuter)
	outerBr.AddPredicate(pOuterElse)

	midBr := g.NewGenericOp(hbOuter, &lang.Switch{})
	midBr.SetPredicate(pOuter)
	midBr.AddLocalRead(cond, condSlot)
	pMid := g.NewPredicate(hbMid, "mid")
	midBr.AddPredicate(pMid)

	innerBr := g.NewGenericOp(hbMid, &lang.Switch{})
	innerBr.SetPredicate(pMid)
	innerBr.AddLocalRead(cond, condSlot)
	pInner := g.NewPredicate(hbInner, "inner")
	innerBr.AddPredicate(pInner)

	exit := g.NewExit(hbInner)
	exit.SetPredicate(pInner)

	pg, err := BuildPredicateGraph(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := pg.Entry()
	cases := []struct {
		name string
		a, b *PredicateSlot
		want bool
	}{
		{"entry over inner", entry, pInner, true},
		{"outer over mid", pOuter, pMid, true},
		{"outer over inner", pOuter, pInner, true},
		{"mid over inner", pMid, pInner, true},
		{"inner over outer", pInner, pOuter, false},
		{"inner over mid", pInner, pMid, false},
		{"mid over outer", pMid, pOuter, false},
		{"untaken arm over inner", pOuterElse, pInner, false},
	}
	for _, c := range cases {
		if got := pg.Dominates(c.a, c.b); got != c.want {
			t.Errorf("%s: Dominates(%v, %v) = %v, want %v", c.name, c.a, c.b, got, c.want)
		}
	}

	if pg.ExitPredicate() != pInner {
		t.Errorf("exit predicate = %v, want %v", pg.ExitPredicate(), pInner)
	}
}

func TestPredicateCycleDetected(t *testing.T) {
	hb0 := &Hyperblock{Name: "entry"}
	g := NewGraph(hb0)
	hbT := &Hyperblock{Name: "then"}
	hbJ := &Hyperblock{Name: "join"}

	branch := g.NewGenericOp(hb0, &lang.Switch{})
	branch.SetPredicate(g.EntryPredicate)
	pThen := g.NewPredicate(hbT, "then")
	branch.AddPredicate(pThen)

	hbM := &Hyperblock{Name: "mid"}
	pJoin := g.NewPredicate(hbJ, "join")
	pMid := g.NewPredicate(hbM, "mid")

	gateT := g.NewGate(hbT)
	gateT.AddRead(pThen)
	outT := g.NewPredicate(hbT, "then out")
	gateT.AddModify(outT)

	// join depends on mid and mid depends on join.
	gateM := g.NewGate(hbM)
	gateM.AddRead(pMid)
	outM := g.NewPredicate(hbM, "mid out")
	gateM.AddModify(outM)

	join := g.NewMerge(hbJ)
	join.AddRead(outT)
	join.AddRead(outM)
	join.AddModify(pJoin)

	gateJ := g.NewGate(hbJ)
	gateJ.AddRead(pJoin)
	outJ := g.NewPredicate(hbJ, "join out")
	gateJ.AddModify(outJ)

	mid := g.NewMerge(hbM)
	mid.AddRead(outJ)
	mid.AddModify(pMid)

	_, err := BuildPredicateGraph(g)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected a cycle error, got %v", err)
	}
	if len(cycleErr.Cycles) == 0 {
		t.Errorf("cycle error should name at least one cycle")
	}
}
