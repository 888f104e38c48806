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
	"golang.org/x/tools/container/intsets"

	"github.com/awslabs/dynflow/analysis/config"
)

// computeLiveness marks every node the exit observably depends on, walking
// the reverse edges from the exit op. Heap fields that reach the exit
// straight from the entry are not marked: an untouched field is not an
// output and gets filtered by the killer.
func computeLiveness(g *Graph) *intsets.Sparse {
	live := &intsets.Sparse{}
	var mark func(Node)
	mark = func(n Node) {
		if n == nil || live.Has(n.ID()) {
			return
		}
		live.Insert(n.ID())

		if exit, ok := n.(*Exit); ok {
			if exit.Predicate != nil {
				mark(exit.Predicate)
			}
			for _, slot := range exit.Reads {
				if field, isField := slot.(*FieldSlot); isField {
					if _, fromEntry := field.DefiningOp().(*Entry); fromEntry {
						continue
					}
				}
				mark(slot)
			}
			return
		}

		for _, prev := range n.Reverse() {
			mark(prev)
		}
	}
	if g.Exit != nil {
		mark(g.Exit)
	}
	return live
}

// EliminateDeadCode removes every op and slot the exit cannot observe and
// returns the number of nodes it disconnected. Ops whose only dead outputs
// are local results keep running for their heap effects but stop defining
// the results, which lets later passes treat them as pure reads.
func EliminateDeadCode(g *Graph, logger *config.LogGroup) int {
	live := computeLiveness(g)
	removed := 0

	// Dead ops are disconnected in place; dead slots lose their entry and
	// exit bindings. The node list is snapshotted first because killing
	// rewrites the edges the traversal would follow.
	for _, n := range g.CollectNodes() {
		if live.Has(n.ID()) {
			removed += killDeadOutputs(n, live)
			continue
		}

		switch op := n.(type) {
		case *GenericOp:
			op.Destroy()
			removed++
		case *Merge:
			for _, read := range op.Reads {
				read.RemoveUse(op)
			}
			if op.Modify != nil {
				op.Modify.RemoveDefn(op)
			}
			op.Reads, op.Modify = nil, nil
			removed++
		case *Gate:
			if op.Read != nil {
				op.Read.RemoveUse(op)
			}
			if op.Predicate != nil {
				op.Predicate.RemoveUse(op)
				op.Predicate = nil
			}
			if op.Modify != nil {
				op.Modify.RemoveDefn(op)
			}
			op.Read, op.Modify = nil, nil
			removed++
		case *Split:
			if op.Read != nil {
				op.Read.RemoveUse(op)
			}
			for _, slot := range op.Modifies {
				slot.RemoveDefn(op)
			}
			op.Read, op.Modifies = nil, nil
			removed++
		}
	}

	if removed > 0 {
		logger.Debugf("dead code elimination removed %d nodes", removed)
	}
	return removed
}

// killDeadOutputs trims the dead outputs of a live op.
func killDeadOutputs(n Node, live *intsets.Sparse) int {
	removed := 0
	switch op := n.(type) {
	case *Entry:
		for name, slot := range op.Modifies {
			if !live.Has(slot.ID()) {
				op.RemoveEntry(name, slot)
				removed++
			}
		}

	case *Exit:
		before := len(op.Reads)
		op.FilterReads(func(name any, slot SlotNode) bool {
			return live.Has(slot.ID())
		})
		removed += before - len(op.Reads)

	case *Split:
		var kept []SlotNode
		for _, slot := range op.Modifies {
			if live.Has(slot.ID()) {
				kept = append(kept, slot)
			} else {
				slot.RemoveDefn(op)
				removed++
			}
		}
		op.Modifies = kept
		if len(kept) == 1 {
			op.Optimize()
		}

	case *GenericOp:
		// A live op's local results may still all be dead, typically a
		// load feeding a value nobody reads. Dropping the definitions
		// keeps the op alive for ordering only.
		if len(op.LocalModifies) == 0 {
			return 0
		}
		for _, slot := range op.LocalModifies {
			if live.Has(slot.ID()) {
				return 0
			}
		}
		for _, slot := range op.LocalModifies {
			slot.RemoveDefn(op)
		}
		op.LocalModifies = nil
		removed++
	}
	return removed
}
