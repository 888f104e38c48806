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
	"strconv"
	"strings"

	"github.com/awslabs/dynflow/analysis/config"
	"github.com/awslabs/dynflow/analysis/lang"
	fn "github.com/awslabs/dynflow/internal/funcutil"
)

// A loadSignature identifies what a load observes: the object, the field
// kind and name, and the exact heap versions involved. A load and a store
// share a signature when the load reads precisely the versions the store
// wrote, so the loaded value must be the stored one.
type loadSignature struct {
	expr   SlotNode
	kind   lang.FieldKind
	name   SlotNode
	fields string
}

// A heapAccess is a load or store participating in elimination. value is
// the slot holding the accessed value: the stored operand for stores, the
// result for loads.
type heapAccess struct {
	op     *GenericOp
	sig    loadSignature
	pred   *PredicateSlot
	value  SlotNode
	isLoad bool
}

// EliminateRedundantLoads replaces loads whose value is already available,
// from a store or an earlier load of the same signature on a dominating
// predicate, and returns the number of loads eliminated. Eliminated loads
// keep their heap reads for ordering; a following dead-code pass removes
// them once nothing uses them.
func EliminateRedundantLoads(g *Graph, pg *PredicateGraph, logger *config.LogGroup) int {
	eliminated := 0
	total := 0

	// Each replacement can canonicalize operands of other accesses, so
	// signatures are rebuilt until no round finds a replacement.
	for round := 0; ; round++ {
		groups := map[loadSignature][]*heapAccess{}
		var loads []*heapAccess
		g.ForEachNode(func(n Node) {
			access := classifyAccess(pg, n)
			if access == nil {
				return
			}
			groups[access.sig] = append(groups[access.sig], access)
			if access.isLoad {
				loads = append(loads, access)
			}
		})
		if round == 0 {
			total = len(loads)
		}

		changed := false
		for _, load := range loads {
			if src := findAvailable(pg, groups[load.sig], load); src != nil {
				logger.Tracef("load %d takes its value from op %d", load.op.ID(), src.op.ID())
				replaceLoad(load, src)
				eliminated++
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	if total > 0 {
		logger.Infof("load elimination removed %d of %d loads", eliminated, total)
	}
	return eliminated
}

// classifyAccess builds the heapAccess record for a load or store op, nil
// for anything else or for loads already stripped of their result.
func classifyAccess(pg *PredicateGraph, n Node) *heapAccess {
	op, ok := n.(*GenericOp)
	if !ok {
		return nil
	}

	pred := canonPredicate(op.Predicate)
	if pred == nil {
		pred = pg.Entry()
	}

	switch node := op.Op.(type) {
	case *lang.Load:
		if len(op.LocalModifies) != 1 {
			return nil
		}
		base, okBase := op.LocalReads[node.Expr]
		name, okName := op.LocalReads[node.Name]
		if !okBase || !okName {
			return nil
		}
		return &heapAccess{
			op: op,
			sig: loadSignature{
				expr:   normalizeRead(base),
				kind:   node.FieldKind,
				name:   normalizeRead(name),
				fields: fieldsKey(op.HeapReads),
			},
			pred:   pred,
			value:  op.LocalModifies[0],
			isLoad: true,
		}

	case *lang.Store:
		base, okBase := op.LocalReads[node.Expr]
		name, okName := op.LocalReads[node.Name]
		value, okValue := op.LocalReads[node.Value]
		if !okBase || !okName || !okValue {
			return nil
		}
		return &heapAccess{
			op: op,
			sig: loadSignature{
				expr:   normalizeRead(base),
				kind:   node.FieldKind,
				name:   normalizeRead(name),
				fields: fieldsKey(op.HeapModifies),
			},
			pred:  pred,
			value: value,
		}
	}
	return nil
}

// normalizeRead canonicalizes an operand slot, looking through type-switch
// bindings: the bound local is the scrutinized value with a narrower type,
// so accesses through either name the same object.
func normalizeRead(slot SlotNode) SlotNode {
	slot = slot.Canonical()
	op, ok := slot.DefiningOp().(*GenericOp)
	if !ok || !op.IsTypeSwitch() {
		return slot
	}
	for _, modify := range op.LocalModifies {
		if modify.Canonical() != slot {
			continue
		}
		if src, ok := op.LocalReads[op.Op.(*lang.TypeSwitch).Conditional]; ok {
			return normalizeRead(src)
		}
	}
	return slot
}

// fieldsKey produces a canonical key over a set of (field, version) pairs.
// Fields are interned so their printed names are identities.
func fieldsKey(fields map[*lang.Field]SlotNode) string {
	parts := make(map[string]bool, len(fields))
	for f, slot := range fields {
		parts[f.String()+"#"+strconv.Itoa(slot.Canonical().ID())] = true
	}
	return strings.Join(fn.SetToOrderedSlice(parts), ",")
}

// findAvailable picks a same-signature access whose predicate dominates the
// load's. Every member of a signature group holds the same value, so any
// dominating member serves. Loads on the very same predicate only flow
// forward, from the lower op id to the higher, to keep replacement acyclic.
func findAvailable(pg *PredicateGraph, group []*heapAccess, load *heapAccess) *heapAccess {
	for _, src := range group {
		if src.op == load.op {
			continue
		}
		if src.isLoad && len(src.op.LocalModifies) != 1 {
			continue
		}
		if !pg.Dominates(src.pred, load.pred) {
			continue
		}
		if src.isLoad && src.pred == load.pred && src.op.ID() > load.op.ID() {
			continue
		}
		if src.value.Canonical() == load.value.Canonical() {
			continue
		}
		return src
	}
	return nil
}

// replaceLoad rewires every user of the load's result to the available
// value and strips the result from the load.
func replaceLoad(load, src *heapAccess) {
	dst := load.op.LocalModifies[0]
	dst.Canonical().(flowSlot).fcore().Redirect(src.value.Canonical())
	dst.RemoveDefn(load.op)
	load.op.LocalModifies = nil
}
