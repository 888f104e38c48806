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

package main

import (
	"github.com/awslabs/dynflow/analysis/dataflow"
	"github.com/awslabs/dynflow/analysis/lang"
)

var (
	objZero   = &lang.Object{Name: "0"}
	objOne    = &lang.Object{Name: "1", Truthy: true}
	objNone   = &lang.Object{Name: "None"}
	objInt    = &lang.Object{Name: "int", Truthy: true}
	objStr    = &lang.Object{Name: "str", Truthy: true}
	objFieldX = &lang.Object{Name: `"x"`}
)

func existing(obj *lang.Object) lang.Expr { return &lang.Existing{Object: obj} }

func cond(e lang.Expr) *lang.Condition {
	return &lang.Condition{Preamble: &lang.Suite{}, Conditional: e}
}

func assign(target *lang.Local, e lang.Expr) lang.Stmt {
	return &lang.Assign{Expr: e, Targets: []*lang.Local{target}}
}

// clamp(x): if x: y = x else: y = 0; return y
func sampleClamp() *lang.Code {
	x := &lang.Local{Name: "x"}
	y := &lang.Local{Name: "y"}
	return &lang.Code{
		Name:       "clamp",
		Parameters: []*lang.Local{x},
		Body: &lang.Suite{Ops: []lang.Stmt{
			&lang.Switch{
				Condition: cond(x),
				T:         &lang.Suite{Ops: []lang.Stmt{assign(y, x)}},
				F:         &lang.Suite{Ops: []lang.Stmt{assign(y, existing(objZero))}},
			},
			&lang.Return{Value: y},
		}},
	}
}

// sum_to(n): total = 0; while n: total = total + n; n = n - 1; return total
func sampleSumTo() *lang.Code {
	n := &lang.Local{Name: "n"}
	total := &lang.Local{Name: "total"}
	return &lang.Code{
		Name:       "sum_to",
		Parameters: []*lang.Local{n},
		Body: &lang.Suite{Ops: []lang.Stmt{
			assign(total, existing(objZero)),
			&lang.While{
				Condition: cond(n),
				Body: &lang.Suite{Ops: []lang.Stmt{
					assign(total, &lang.BinOp{Left: total, Op: "+", Right: n}),
					assign(n, &lang.BinOp{Left: n, Op: "-", Right: existing(objOne)}),
				}},
				Else: &lang.Suite{},
			},
			&lang.Return{Value: total},
		}},
	}
}

// describe(v): type-dispatch over v, returning a tag per runtime type.
func sampleDescribe() *lang.Code {
	v := &lang.Local{Name: "v"}
	tag := &lang.Local{Name: "tag"}
	bound := &lang.Local{Name: "w"}
	return &lang.Code{
		Name:       "describe",
		Parameters: []*lang.Local{v},
		Body: &lang.Suite{Ops: []lang.Stmt{
			&lang.TypeSwitch{
				Conditional: v,
				Cases: []*lang.TypeSwitchCase{
					{
						Types:   []*lang.Object{objInt},
						Binding: bound,
						Body:    &lang.Suite{Ops: []lang.Stmt{assign(tag, bound)}},
					},
					{
						Types:   []*lang.Object{objStr},
						Binding: bound.Clone(),
						Body:    &lang.Suite{Ops: []lang.Stmt{assign(tag, existing(objStr))}},
					},
					{
						Body: &lang.Suite{Ops: []lang.Stmt{assign(tag, existing(objNone))}},
					},
				},
			},
			&lang.Return{Value: tag},
		}},
	}
}

// count_down(n): while n: yield n; n = n - 1
func sampleCountDown() *lang.Code {
	n := &lang.Local{Name: "n"}
	return &lang.Code{
		Name:       "count_down",
		Parameters: []*lang.Local{n},
		Body: &lang.Suite{Ops: []lang.Stmt{
			&lang.While{
				Condition: cond(n),
				Body: &lang.Suite{Ops: []lang.Stmt{
					&lang.Yield{Value: n},
					assign(n, &lang.BinOp{Left: n, Op: "-", Right: existing(objOne)}),
				}},
				Else: &lang.Suite{},
			},
			&lang.Return{Value: existing(objNone)},
		}},
	}
}

func sampleProcedures() []*lang.Code {
	return []*lang.Code{
		sampleClamp(),
		sampleSumTo(),
		sampleDescribe(),
		sampleCountDown(),
	}
}

type dataflowSample struct {
	name  string
	graph *dataflow.Graph
}

// storeThenLoad is a hand-lowered procedure that stores o.x and reads it
// right back: the load is redundant and the round trip disappears.
func storeThenLoad() *dataflow.Graph {
	hb := &dataflow.Hyperblock{Name: "entry"}
	g := dataflow.NewGraph(hb)

	lo := &lang.Local{Name: "o"}
	so := g.NewLocal(hb, lo)
	g.Entry.AddEntry(lo, so)

	lv := &lang.Local{Name: "v"}
	sv := g.NewLocal(hb, lv)
	g.Entry.AddEntry(lv, sv)

	fld := &lang.Field{Kind: lang.AttributeField, Name: "x"}
	f0 := g.NewField(hb, fld)
	g.Entry.AddEntry(fld, f0)

	storeName := existing(objFieldX)
	store := g.NewGenericOp(hb, &lang.Store{
		Expr: lo, FieldKind: lang.AttributeField, Name: storeName, Value: lv,
	})
	store.SetPredicate(g.EntryPredicate)
	store.AddLocalRead(lo, so)
	store.AddLocalRead(storeName, g.GetExisting(objFieldX))
	store.AddLocalRead(lv, sv)
	store.AddPseudoRead(fld, f0)
	f1 := g.NewField(hb, fld)
	store.AddHeapModify(fld, f1)

	loadName := existing(objFieldX)
	load := g.NewGenericOp(hb, &lang.Load{
		Expr: lo, FieldKind: lang.AttributeField, Name: loadName,
	})
	load.SetPredicate(g.EntryPredicate)
	load.AddLocalRead(lo, so)
	load.AddLocalRead(loadName, g.GetExisting(objFieldX))
	load.AddHeapRead(fld, f1)
	result := g.NewLocal(hb, &lang.Local{Name: "r"})
	load.AddLocalModify(result)

	exit := g.NewExit(hb)
	exit.SetPredicate(g.EntryPredicate)
	exit.AddExit("result", result)
	exit.AddExit(fld, f1)
	return g
}

// doubleRead loads o.x twice without an intervening store: the second
// load reuses the first one's value.
func doubleRead() *dataflow.Graph {
	hb := &dataflow.Hyperblock{Name: "entry"}
	g := dataflow.NewGraph(hb)

	lo := &lang.Local{Name: "o"}
	so := g.NewLocal(hb, lo)
	g.Entry.AddEntry(lo, so)

	fld := &lang.Field{Kind: lang.AttributeField, Name: "x"}
	f0 := g.NewField(hb, fld)
	g.Entry.AddEntry(fld, f0)

	exit := g.NewExit(hb)
	exit.SetPredicate(g.EntryPredicate)

	for _, name := range []string{"first", "second"} {
		loadName := existing(objFieldX)
		load := g.NewGenericOp(hb, &lang.Load{
			Expr: lo, FieldKind: lang.AttributeField, Name: loadName,
		})
		load.SetPredicate(g.EntryPredicate)
		load.AddLocalRead(lo, so)
		load.AddLocalRead(loadName, g.GetExisting(objFieldX))
		load.AddHeapRead(fld, f0)
		result := g.NewLocal(hb, &lang.Local{Name: name})
		load.AddLocalModify(result)
		exit.AddExit(name, result)
	}
	return g
}

func sampleGraphs() []dataflowSample {
	return []dataflowSample{
		{name: "store_then_load", graph: storeThenLoad()},
		{name: "double_read", graph: doubleRead()},
	}
}
