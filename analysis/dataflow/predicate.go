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
	"fmt"
	"strings"

	"github.com/yourbasic/graph"

	"github.com/awslabs/dynflow/internal/graphutil"
)

// A CycleError reports circular predicate dependencies: the predicate graph
// must be a DAG rooted at the entry predicate for dominance queries to be
// meaningful.
type CycleError struct {
	Cycles [][]*PredicateSlot
}

func (e *CycleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dataflow: predicate graph has %d cycles", len(e.Cycles))
	for _, cycle := range e.Cycles {
		b.WriteString("; ")
		for i, slot := range cycle {
			if i > 0 {
				b.WriteString(" -> ")
			}
			b.WriteString(slot.String())
		}
	}
	return b.String()
}

// A PredicateGraph records which predicates each predicate is derived from
// and answers dominance queries between them. Predicate p dominates q when
// every path that makes q true makes p true first.
type PredicateGraph struct {
	slots []*PredicateSlot
	index map[*PredicateSlot]int
	edges map[[2]int]bool

	entry *PredicateSlot
	exit  *PredicateSlot

	idom map[int64]int64
}

// BuildPredicateGraph derives the predicate dependency graph from a dataflow
// graph. Branches contribute an edge from their gating predicate to each arm
// predicate they generate; predicate merges contribute an edge from every
// gated input predicate to the joined output.
func BuildPredicateGraph(g *Graph) (*PredicateGraph, error) {
	pg := &PredicateGraph{index: map[*PredicateSlot]int{}, edges: map[[2]int]bool{}}
	pg.entry = canonPredicate(g.EntryPredicate)
	pg.intern(pg.entry)

	var buildErr error
	g.ForEachNode(func(n Node) {
		switch op := n.(type) {
		case *GenericOp:
			if len(op.Predicates) == 0 {
				return
			}
			parent := canonPredicate(op.Predicate)
			if parent == nil {
				parent = pg.entry
			}
			for _, child := range op.Predicates {
				pg.addEdge(parent, canonPredicate(child))
			}
		case *Merge:
			if !op.IsPredicateOp() {
				return
			}
			joined := canonPredicate(op.Modify)
			for _, read := range op.Reads {
				gate, ok := read.Canonical().DefiningOp().(*Gate)
				if !ok {
					if buildErr == nil {
						buildErr = fmt.Errorf("dataflow: predicate merge input %v is not gated", read)
					}
					return
				}
				pg.addEdge(canonPredicate(gate.Read), joined)
			}
		case *Exit:
			if p := op.CanonicalPredicate(); p != nil {
				pg.exit = p.(*PredicateSlot)
			}
		}
	})
	if buildErr != nil {
		return nil, buildErr
	}
	if err := pg.finalize(); err != nil {
		return nil, err
	}
	return pg, nil
}

func canonPredicate(slot SlotNode) *PredicateSlot {
	if slot == nil {
		return nil
	}
	return slot.Canonical().(*PredicateSlot)
}

func (pg *PredicateGraph) intern(slot *PredicateSlot) int {
	if i, ok := pg.index[slot]; ok {
		return i
	}
	i := len(pg.slots)
	pg.slots = append(pg.slots, slot)
	pg.index[slot] = i
	return i
}

func (pg *PredicateGraph) addEdge(from, to *PredicateSlot) {
	pg.edges[[2]int{pg.intern(from), pg.intern(to)}] = true
}

// finalize checks acyclicity and computes immediate dominators from the
// entry predicate.
func (pg *PredicateGraph) finalize() error {
	dg := graphutil.NewDGraph(len(pg.slots))
	for edge := range pg.edges {
		dg.AddEdge(int64(edge[0]), int64(edge[1]))
	}

	if !graph.Acyclic(dg) {
		err := &CycleError{}
		for _, cycle := range graphutil.FindAllElementaryCycles(dg) {
			slots := make([]*PredicateSlot, len(cycle))
			for i, id := range cycle {
				slots[i] = pg.slots[id]
			}
			err.Cycles = append(err.Cycles, slots)
		}
		return err
	}

	pg.idom = dg.ImmediateDominators(int64(pg.index[pg.entry]))
	return nil
}

// Entry returns the procedure's entry predicate.
func (pg *PredicateGraph) Entry() *PredicateSlot { return pg.entry }

// ExitPredicate returns the predicate the exit op is gated on, nil when the
// graph has no predicated exit.
func (pg *PredicateGraph) ExitPredicate() *PredicateSlot { return pg.exit }

// Dominates reports whether predicate a holds on every path where predicate
// b holds. Reflexive. Predicates the graph has never seen dominate nothing
// and are dominated by nothing but themselves.
func (pg *PredicateGraph) Dominates(a, b *PredicateSlot) bool {
	a = canonPredicate(a)
	b = canonPredicate(b)
	if a == b {
		return true
	}
	ia, ok := pg.index[a]
	if !ok {
		return false
	}
	ib, ok := pg.index[b]
	if !ok {
		return false
	}

	cur := int64(ib)
	for {
		dom, ok := pg.idom[cur]
		if !ok || dom == cur {
			return false
		}
		if dom == int64(ia) {
			return true
		}
		cur = dom
	}
}

// Tree materializes the dominator tree rooted at the entry predicate.
// Predicates unreachable from the entry are omitted.
func (pg *PredicateGraph) Tree() *graphutil.Tree[*PredicateSlot] {
	root := graphutil.NewTree(pg.entry)
	placed := map[int]*graphutil.Tree[*PredicateSlot]{pg.index[pg.entry]: root}

	pending := make([]int, 0, len(pg.slots))
	for i := range pg.slots {
		if i != pg.index[pg.entry] {
			pending = append(pending, i)
		}
	}

	for len(pending) > 0 {
		var next []int
		for _, i := range pending {
			dom, ok := pg.idom[int64(i)]
			if !ok {
				continue
			}
			parent, ready := placed[int(dom)]
			if !ready {
				next = append(next, i)
				continue
			}
			placed[i] = parent.AddChild(pg.slots[i])
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}
	return root
}
