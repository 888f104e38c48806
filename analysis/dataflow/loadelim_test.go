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
	"testing"

	"github.com/awslabs/dynflow/analysis/lang"
)

// addLoad wires a load of fld through base/name operands reading version,
// predicated on pred, and returns the op and its result slot.
func addLoad(g *Graph, hb *Hyperblock, pred SlotNode, base *LocalSlot, baseName *lang.Local,
	nameObj *lang.Object, fld *lang.Field, version SlotNode) (*GenericOp, *LocalSlot) {
	nameExpr := &lang.Existing{Object: nameObj}
	op := g.NewGenericOp(hb, &lang.Load{
		Expr: baseName, FieldKind: fld.Kind, Name: nameExpr,
	})
	op.SetPredicate(pred)
	op.AddLocalRead(baseName, base)
	op.AddLocalRead(nameExpr, g.GetExisting(nameObj))
	op.AddHeapRead(fld, version)
	result := g.NewLocal(hb, &lang.Local{Name: "r"})
	op.AddLocalModify(result)
	return op, result
}

func TestLoadAfterStoreEliminated(t *testing.T) {
	hb := &Hyperblock{Name: "entry"}
	g := NewGraph(hb)

	lo := &lang.Local{Name: "o"}
	so := g.NewLocal(hb, lo)
	g.Entry.AddEntry(lo, so)

	lv := &lang.Local{Name: "v"}
	sv := g.NewLocal(hb, lv)
	g.Entry.AddEntry(lv, sv)

	fld := &lang.Field{Kind: lang.AttributeField, Name: "x"}
	f0 := g.NewField(hb, fld)
	g.Entry.AddEntry(fld, f0)

	nameObj := &lang.Object{Name: `"x"`}
	nameExpr := &lang.Existing{Object: nameObj}

	// o.x = v
	store := g.NewGenericOp(hb, &lang.Store{
		Expr: lo, FieldKind: lang.AttributeField, Name: nameExpr, Value: lv,
	})
	store.SetPredicate(g.EntryPredicate)
	store.AddLocalRead(lo, so)
	store.AddLocalRead(nameExpr, g.GetExisting(nameObj))
	store.AddLocalRead(lv, sv)
	store.AddPseudoRead(fld, f0)
	f1 := g.NewField(hb, fld)
	store.AddHeapModify(fld, f1)

	// r = o.x, reading exactly the stored version
	load, result := addLoad(g, hb, g.EntryPredicate, so, lo, nameObj, fld, f1)

	exit := g.NewExit(hb)
	exit.SetPredicate(g.EntryPredicate)
	exit.AddExit(result, result)
	exit.AddExit(fld, f1)

	pg, err := BuildPredicateGraph(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := EliminateRedundantLoads(g, pg, testLogger()); n != 1 {
		t.Fatalf("expected 1 load eliminated, got %d", n)
	}
	if len(load.LocalModifies) != 0 {
		t.Errorf("eliminated load should no longer define its result")
	}
	if exit.Reads[result].Canonical() != sv {
		t.Errorf("exit should observe the stored value, got %v", exit.Reads[result].Canonical())
	}
	if n := EliminateRedundantLoads(g, pg, testLogger()); n != 0 {
		t.Errorf("second pass should find nothing, got %d", n)
	}

	// The stripped load is unobservable and a cleanup pass removes it.
	if removed := EliminateDeadCode(g, testLogger()); removed == 0 {
		t.Errorf("expected the stripped load to be collected")
	}
	if len(load.LocalReads) != 0 {
		t.Errorf("collected load should be disconnected")
	}
}

func TestLoadAcrossUnrelatedStoreEliminated(t *testing.T) {
	hb := &Hyperblock{Name: "entry"}
	g := NewGraph(hb)

	lo := &lang.Local{Name: "o"}
	so := g.NewLocal(hb, lo)
	g.Entry.AddEntry(lo, so)

	lv := &lang.Local{Name: "v"}
	sv := g.NewLocal(hb, lv)
	g.Entry.AddEntry(lv, sv)

	lw := &lang.Local{Name: "w"}
	sw := g.NewLocal(hb, lw)
	g.Entry.AddEntry(lw, sw)

	fldF := &lang.Field{Kind: lang.AttributeField, Name: "f"}
	f0 := g.NewField(hb, fldF)
	g.Entry.AddEntry(fldF, f0)
	fldG := &lang.Field{Kind: lang.AttributeField, Name: "g"}
	g0 := g.NewField(hb, fldG)
	g.Entry.AddEntry(fldG, g0)

	nameF := &lang.Object{Name: `"f"`}
	nameFExpr := &lang.Existing{Object: nameF}
	nameG := &lang.Object{Name: `"g"`}
	nameGExpr := &lang.Existing{Object: nameG}

	// o.f = v
	storeF := g.NewGenericOp(hb, &lang.Store{
		Expr: lo, FieldKind: lang.AttributeField, Name: nameFExpr, Value: lv,
	})
	storeF.SetPredicate(g.EntryPredicate)
	storeF.AddLocalRead(lo, so)
	storeF.AddLocalRead(nameFExpr, g.GetExisting(nameF))
	storeF.AddLocalRead(lv, sv)
	storeF.AddPseudoRead(fldF, f0)
	f1 := g.NewField(hb, fldF)
	storeF.AddHeapModify(fldF, f1)

	// o.g = w, touching a different field between the store and the load.
	storeG := g.NewGenericOp(hb, &lang.Store{
		Expr: lo, FieldKind: lang.AttributeField, Name: nameGExpr, Value: lw,
	})
	storeG.SetPredicate(g.EntryPredicate)
	storeG.AddLocalRead(lo, so)
	storeG.AddLocalRead(nameGExpr, g.GetExisting(nameG))
	storeG.AddLocalRead(lw, sw)
	storeG.AddPseudoRead(fldG, g0)
	g1 := g.NewField(hb, fldG)
	storeG.AddHeapModify(fldG, g1)

	// r = o.f still reads the version storeF wrote: availability is decided
	// by the signature, not by adjacency.
	load, result := addLoad(g, hb, g.EntryPredicate, so, lo, nameF, fldF, f1)

	exit := g.NewExit(hb)
	exit.SetPredicate(g.EntryPredicate)
	exit.AddExit(result, result)
	exit.AddExit(fldF, f1)
	exit.AddExit(fldG, g1)

	pg, err := BuildPredicateGraph(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := EliminateRedundantLoads(g, pg, testLogger()); n != 1 {
		t.Fatalf("expected 1 load eliminated, got %d", n)
	}
	if len(load.LocalModifies) != 0 {
		t.Errorf("eliminated load should no longer define its result")
	}
	if exit.Reads[result].Canonical() != sv {
		t.Errorf("exit should observe the stored value, got %v", exit.Reads[result].Canonical())
	}
	if len(storeG.LocalReads) == 0 {
		t.Errorf("the unrelated store must be untouched")
	}
}

func TestLoadAfterLoadEliminated(t *testing.T) {
	hb := &Hyperblock{Name: "entry"}
	g := NewGraph(hb)

	lo := &lang.Local{Name: "o"}
	so := g.NewLocal(hb, lo)
	g.Entry.AddEntry(lo, so)

	fld := &lang.Field{Kind: lang.AttributeField, Name: "x"}
	f0 := g.NewField(hb, fld)
	g.Entry.AddEntry(fld, f0)

	nameObj := &lang.Object{Name: `"x"`}

	first, firstResult := addLoad(g, hb, g.EntryPredicate, so, lo, nameObj, fld, f0)
	second, secondResult := addLoad(g, hb, g.EntryPredicate, so, lo, nameObj, fld, f0)

	exit := g.NewExit(hb)
	exit.SetPredicate(g.EntryPredicate)
	exit.AddExit("first", firstResult)
	exit.AddExit("second", secondResult)

	pg, err := BuildPredicateGraph(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := EliminateRedundantLoads(g, pg, testLogger()); n != 1 {
		t.Fatalf("expected 1 load eliminated, got %d", n)
	}
	if len(first.LocalModifies) != 1 {
		t.Errorf("the earlier load must keep its result")
	}
	if len(second.LocalModifies) != 0 {
		t.Errorf("the later load should be stripped")
	}
	if exit.Reads["second"].Canonical() != firstResult {
		t.Errorf("both exits should observe the first load's result")
	}
	_ = second
}

func TestStoreInBranchDoesNotDominateLoad(t *testing.T) {
	f := buildBranch()
	g := f.g

	lo := &lang.Local{Name: "o"}
	so := g.NewLocal(f.hb0, lo)
	g.Entry.AddEntry(lo, so)

	lv := &lang.Local{Name: "v"}
	sv := g.NewLocal(f.hb0, lv)
	g.Entry.AddEntry(lv, sv)

	fld := &lang.Field{Kind: lang.AttributeField, Name: "x"}
	f0 := g.NewField(f.hb0, fld)
	g.Entry.AddEntry(fld, f0)

	nameObj := &lang.Object{Name: `"x"`}
	nameExpr := &lang.Existing{Object: nameObj}

	// Store on the then path only.
	store := g.NewGenericOp(f.hbT, &lang.Store{
		Expr: lo, FieldKind: lang.AttributeField, Name: nameExpr, Value: lv,
	})
	store.SetPredicate(f.pThen)
	store.AddLocalRead(lo, so)
	store.AddLocalRead(nameExpr, g.GetExisting(nameObj))
	store.AddLocalRead(lv, sv)
	store.AddPseudoRead(fld, f0)
	f1 := g.NewField(f.hbT, fld)
	store.AddHeapModify(fld, f1)

	// On the then path the stored value is available.
	thenLoad, thenResult := addLoad(g, f.hbT, f.pThen, so, lo, nameObj, fld, f1)

	// After the join the store only happened on one path.
	joinLoad, joinResult := addLoad(g, f.hbJ, f.pJoin, so, lo, nameObj, fld, f1)

	f.exit.AddExit("then", thenResult)
	f.exit.AddExit("join", joinResult)
	f.exit.AddExit(fld, f1)

	pg, err := BuildPredicateGraph(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := EliminateRedundantLoads(g, pg, testLogger()); n != 1 {
		t.Fatalf("expected only the same-path load eliminated, got %d", n)
	}
	if len(thenLoad.LocalModifies) != 0 {
		t.Errorf("same-path load should be eliminated")
	}
	if len(joinLoad.LocalModifies) != 1 {
		t.Errorf("post-join load must survive: the store does not dominate it")
	}
	if f.exit.Reads["then"].Canonical() != sv {
		t.Errorf("then exit should observe the stored value")
	}
}
