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

// Package dataflow implements the dataflow IR: a bipartite graph of
// operation nodes and slot nodes in SSA-like form, plus the predicate graph
// and the optimizers (dead-code elimination, redundant-load elimination)
// that run over it.
//
// Flow-sensitive slots have a single definition and a single use; when a
// second use appears a Split is inserted automatically so fan-out never
// exceeds one level. Existing (constant) and null slots are flow-insensitive
// and keep plain use lists.
package dataflow

import (
	"fmt"

	"github.com/awslabs/dynflow/analysis/lang"
)

// A Hyperblock labels the single-predicate region a node belongs to.
type Hyperblock struct {
	Name string
}

func (h *Hyperblock) String() string {
	if h == nil {
		return "<no block>"
	}
	return "block " + h.Name
}

// Node is any vertex of the dataflow graph. IDs are dense per graph so
// passes can keep node sets in bitsets.
type Node interface {
	ID() int
	Hyperblock() *Hyperblock

	// Forward returns the nodes this node feeds into.
	Forward() []Node

	// Reverse returns the nodes this node depends on.
	Reverse() []Node
}

// OpNode is an operation: it reads slots and defines slots.
type OpNode interface {
	Node
	isOp()
}

// SlotNode is a storage location: a local, field, predicate, constant or
// null value.
type SlotNode interface {
	Node

	// AddUse registers op as a reader and returns the slot the op must
	// actually reference. For a flow-sensitive slot with an existing use
	// this is a fresh split product, not the receiver.
	AddUse(op OpNode) SlotNode
	RemoveUse(op OpNode)

	// AddDefn registers op as the definition. Panics on slots that cannot
	// be defined or are already defined by a different op.
	AddDefn(op OpNode) SlotNode
	RemoveDefn(op OpNode)

	// Canonical resolves split products and redirected slots to the
	// original value.
	Canonical() SlotNode

	// DefiningOp returns the operation that computes this value, looking
	// through splits.
	DefiningOp() OpNode

	// Mutable reports whether the slot can vary between program paths.
	Mutable() bool

	isSlot()
}

// opUser is implemented by ops whose inputs can be rewired.
type opUser interface {
	replaceUse(original, replacement SlotNode)
}

// opDefiner is implemented by ops whose outputs can be rewired.
type opDefiner interface {
	replaceDefn(original, replacement SlotNode)
}

type opCore struct {
	id int
	hb *Hyperblock
}

func (o *opCore) ID() int                 { return o.id }
func (o *opCore) Hyperblock() *Hyperblock { return o.hb }
func (o *opCore) isOp()                   {}

// flowSlot is the internal surface of the flow-sensitive slot kinds.
type flowSlot interface {
	SlotNode

	// Duplicate returns a fresh version of the slot sharing its identity
	// metadata.
	Duplicate() flowSlot

	fcore() *flowCore
}

// flowCore carries the single-definition single-use state shared by local,
// field and predicate slots.
type flowCore struct {
	id   int
	g    *Graph
	hb   *Hyperblock
	self flowSlot

	defn OpNode
	use  OpNode

	// forwarded is set when the slot has been redirected onto another
	// value; Canonical follows and compresses these links.
	forwarded SlotNode
}

func (c *flowCore) init(g *Graph, hb *Hyperblock, self flowSlot) {
	c.id = g.nextID()
	c.g = g
	c.hb = hb
	c.self = self
}

func (c *flowCore) ID() int                 { return c.id }
func (c *flowCore) Hyperblock() *Hyperblock { return c.hb }
func (c *flowCore) fcore() *flowCore        { return c }
func (c *flowCore) isSlot()                 {}

// Defn returns the defining op, nil if the slot is undefined.
func (c *flowCore) Defn() OpNode { return c.defn }

// Use returns the using op, nil if the slot is unused.
func (c *flowCore) Use() OpNode { return c.use }

func (c *flowCore) AddDefn(op OpNode) SlotNode {
	if c.defn != nil && c.defn != op {
		panic(fmt.Sprintf("dataflow: %v defined twice", c.self))
	}
	c.defn = op
	return c.self
}

func (c *flowCore) RemoveDefn(op OpNode) {
	if c.defn != op {
		panic(fmt.Sprintf("dataflow: %v is not defined by %v", c.self, op))
	}
	c.defn = nil
}

// AddUse threads a new reader onto the slot. A second use turns the current
// single use into a Split; further uses attach new split products. Users of
// a split product are passed through to the split's input so splits never
// nest.
func (c *flowCore) AddUse(op OpNode) SlotNode {
	if c.use == nil {
		c.use = op
		return c.self
	}

	if split, ok := c.defn.(*Split); ok {
		return split.Read.AddUse(op)
	}

	split, ok := c.use.(*Split)
	if !ok {
		// Move the current use onto a duplicate and interpose a split.
		dup := c.self.Duplicate()
		dup.fcore().use = c.use
		c.use.(opUser).replaceUse(c.self, dup)

		split = c.g.newSplit(c.hb)
		split.Read = c.self
		split.addModify(dup)
		c.use = split
	}

	product := c.self.Duplicate()
	product.fcore().use = op
	split.addModify(product)
	return product
}

func (c *flowCore) RemoveUse(op OpNode) {
	if c.use != op {
		panic(fmt.Sprintf("dataflow: %v is not used by %v", c.self, op))
	}
	c.use = nil
}

func (c *flowCore) Forward() []Node {
	if c.use == nil {
		return nil
	}
	return []Node{c.use}
}

func (c *flowCore) Reverse() []Node {
	if c.defn == nil {
		return nil
	}
	return []Node{c.defn}
}

func (c *flowCore) Canonical() SlotNode {
	if c.forwarded != nil {
		root := c.forwarded.Canonical()
		c.forwarded = root
		return root
	}
	if split, ok := c.defn.(*Split); ok {
		return split.Read.Canonical()
	}
	return c.self
}

func (c *flowCore) DefiningOp() OpNode {
	if split, ok := c.defn.(*Split); ok {
		return split.Read.DefiningOp()
	}
	return c.defn
}

func (c *flowCore) Mutable() bool { return true }

// Redirect moves every use of this value onto other and leaves a forwarding
// link so stale references still canonicalize to other.
func (c *flowCore) Redirect(other SlotNode) {
	other = other.Canonical()

	var moved []flowSlot
	if split, ok := c.use.(*Split); ok {
		for _, m := range split.Modifies {
			moved = append(moved, m.(flowSlot))
		}
	} else {
		moved = append(moved, c.self)
	}

	for _, node := range moved {
		fc := node.fcore()
		if fc.use != nil {
			fc.use.(opUser).replaceUse(node, other.AddUse(fc.use))
			fc.use = nil
		}
	}

	c.forwarded = other
}

// A LocalSlot is one SSA version of a local variable. Several source locals
// may share a slot when they are known to hold the same value.
type LocalSlot struct {
	flowCore

	// names points to a list shared by every version of the slot, so a
	// name added to one version is visible on all of them.
	names *[]*lang.Local
}

// Names returns the source locals bound to this value.
func (l *LocalSlot) Names() []*lang.Local { return *l.names }

func (l *LocalSlot) AddName(name *lang.Local) {
	for _, n := range *l.names {
		if n == name {
			return
		}
	}
	*l.names = append(*l.names, name)
}

func (l *LocalSlot) Duplicate() flowSlot {
	node := &LocalSlot{names: l.names}
	node.flowCore.init(l.g, l.hb, node)
	return node
}

func (l *LocalSlot) String() string {
	names := make([]string, len(*l.names))
	for i, n := range *l.names {
		names[i] = n.Name
	}
	return fmt.Sprintf("lcl(%v)", names)
}

// A PredicateSlot is one version of a control predicate: the value is true
// exactly when its path is taken.
type PredicateSlot struct {
	flowCore
	Name string
}

func (p *PredicateSlot) Duplicate() flowSlot {
	node := &PredicateSlot{Name: p.Name}
	node.flowCore.init(p.g, p.hb, node)
	return node
}

func (p *PredicateSlot) String() string { return "pred(" + p.Name + ")" }

// Source returns the operation defining the canonical predicate.
func (p *PredicateSlot) Source() OpNode {
	return p.Canonical().(*PredicateSlot).defn
}

// A FieldSlot is one version of an abstract heap field. Fields, unlike
// locals, may be written by more than one store.
type FieldSlot struct {
	flowCore
	Name *lang.Field
}

func (f *FieldSlot) Duplicate() flowSlot {
	node := &FieldSlot{Name: f.Name}
	node.flowCore.init(f.g, f.hb, node)
	return node
}

func (f *FieldSlot) String() string { return fmt.Sprintf("field(%v)", f.Name) }

// An ExistingSlot is a constant object. It is canonical per object and
// flow-insensitive: it keeps a plain use list and has no definition.
type ExistingSlot struct {
	id     int
	Object *lang.Object
	Uses   []OpNode
}

func (e *ExistingSlot) ID() int                 { return e.id }
func (e *ExistingSlot) Hyperblock() *Hyperblock { return nil }
func (e *ExistingSlot) isSlot()                 {}

func (e *ExistingSlot) AddUse(op OpNode) SlotNode {
	e.Uses = append(e.Uses, op)
	return e
}

func (e *ExistingSlot) RemoveUse(op OpNode) {
	for i, use := range e.Uses {
		if use == op {
			e.Uses = append(e.Uses[:i], e.Uses[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("dataflow: %v is not used by %v", e, op))
}

func (e *ExistingSlot) AddDefn(op OpNode) SlotNode {
	panic(fmt.Sprintf("dataflow: constant %v cannot be defined", e))
}

func (e *ExistingSlot) RemoveDefn(op OpNode) {
	panic(fmt.Sprintf("dataflow: constant %v has no definition", e))
}

func (e *ExistingSlot) Canonical() SlotNode { return e }
func (e *ExistingSlot) DefiningOp() OpNode  { return nil }
func (e *ExistingSlot) Mutable() bool       { return false }
func (e *ExistingSlot) Forward() []Node     { return opsToNodes(e.Uses) }
func (e *ExistingSlot) Reverse() []Node     { return nil }
func (e *ExistingSlot) String() string      { return fmt.Sprintf("exist(%v)", e.Object) }

// A NullSlot is the absent value. Defined only by the entry.
type NullSlot struct {
	id   int
	defn OpNode
	Uses []OpNode
}

func (n *NullSlot) ID() int                 { return n.id }
func (n *NullSlot) Hyperblock() *Hyperblock { return nil }
func (n *NullSlot) isSlot()                 {}

func (n *NullSlot) AddUse(op OpNode) SlotNode {
	n.Uses = append(n.Uses, op)
	return n
}

func (n *NullSlot) RemoveUse(op OpNode) {
	for i, use := range n.Uses {
		if use == op {
			n.Uses = append(n.Uses[:i], n.Uses[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("dataflow: %v is not used by %v", n, op))
}

func (n *NullSlot) AddDefn(op OpNode) SlotNode {
	if _, ok := op.(*Entry); !ok {
		panic("dataflow: null is only defined at entry")
	}
	if n.defn != nil {
		panic("dataflow: null defined twice")
	}
	n.defn = op
	return n
}

func (n *NullSlot) RemoveDefn(op OpNode) {
	if n.defn != op {
		panic(fmt.Sprintf("dataflow: null is not defined by %v", op))
	}
	n.defn = nil
}

func (n *NullSlot) Canonical() SlotNode { return n }
func (n *NullSlot) DefiningOp() OpNode  { return n.defn }
func (n *NullSlot) Mutable() bool       { return false }
func (n *NullSlot) Forward() []Node     { return opsToNodes(n.Uses) }
func (n *NullSlot) Reverse() []Node     { return nil }
func (n *NullSlot) String() string      { return "null()" }

// predicated holds the gating predicate shared by Exit, Gate and GenericOp.
type predicated struct {
	Predicate SlotNode
}

func (p *predicated) setPredicate(self OpNode, pred SlotNode) {
	if p.Predicate != nil {
		p.Predicate.RemoveUse(self)
	}
	p.Predicate = nil
	if pred != nil {
		p.Predicate = pred.AddUse(self)
	}
}

// CanonicalPredicate returns the canonical version of the gating predicate.
func (p *predicated) CanonicalPredicate() SlotNode {
	if p.Predicate == nil {
		return nil
	}
	return p.Predicate.Canonical()
}

// Entry defines every value live at procedure entry: parameters, the entry
// predicate, and the initial version of each heap field.
type Entry struct {
	opCore
	Modifies map[any]SlotNode
}

// AddEntry defines slot at entry under the given key.
func (e *Entry) AddEntry(name any, slot SlotNode) {
	if _, dup := e.Modifies[name]; dup {
		panic(fmt.Sprintf("dataflow: entry key %v defined twice", name))
	}
	e.Modifies[name] = slot.AddDefn(e)
}

func (e *Entry) RemoveEntry(name any, slot SlotNode) {
	slot.RemoveDefn(e)
	delete(e.Modifies, name)
}

func (e *Entry) Forward() []Node {
	var result []Node
	for _, slot := range e.Modifies {
		result = append(result, slot)
	}
	return result
}

func (e *Entry) Reverse() []Node { return nil }
func (e *Entry) String() string  { return "entry()" }

// Exit reads every value live at procedure exit.
type Exit struct {
	opCore
	predicated
	Reads map[any]SlotNode
}

func (e *Exit) SetPredicate(pred SlotNode) { e.setPredicate(e, pred) }

// AddExit marks slot as read at exit under the given key.
func (e *Exit) AddExit(name any, slot SlotNode) {
	if _, dup := e.Reads[name]; dup {
		panic(fmt.Sprintf("dataflow: exit key %v read twice", name))
	}
	e.Reads[name] = slot.AddUse(e)
}

func (e *Exit) RemoveExit(name any, slot SlotNode) {
	slot.RemoveUse(e)
	delete(e.Reads, name)
}

// FilterReads drops every exit read the callback rejects.
func (e *Exit) FilterReads(keep func(name any, slot SlotNode) bool) {
	reads := map[any]SlotNode{}
	for name, slot := range e.Reads {
		if keep(name, slot) {
			reads[name] = slot
		} else {
			slot.RemoveUse(e)
		}
	}
	e.Reads = reads
}

func (e *Exit) Forward() []Node { return nil }

func (e *Exit) Reverse() []Node {
	var result []Node
	if e.Predicate != nil {
		result = append(result, e.Predicate)
	}
	for _, slot := range e.Reads {
		result = append(result, slot)
	}
	return result
}

func (e *Exit) String() string { return "exit()" }

func (e *Exit) replaceUse(original, replacement SlotNode) {
	if e.Predicate == original {
		e.Predicate = replacement
		return
	}
	for name, slot := range e.Reads {
		if slot == original {
			e.Reads[name] = replacement
			return
		}
	}
	panic(fmt.Sprintf("dataflow: %v does not read %v", e, original))
}

// A Gate passes its input through only on paths where its predicate holds.
type Gate struct {
	opCore
	predicated
	Read   SlotNode
	Modify SlotNode
}

func (g *Gate) SetPredicate(pred SlotNode) { g.setPredicate(g, pred) }

// IsPredicateOp reports whether the gate carries a predicate value.
func (g *Gate) IsPredicateOp() bool {
	_, ok := g.Read.(*PredicateSlot)
	return ok
}

func (g *Gate) AddRead(slot SlotNode) {
	if g.Read != nil {
		panic("dataflow: gate input set twice")
	}
	g.Read = slot.AddUse(g)
}

func (g *Gate) AddModify(slot SlotNode) {
	if g.Modify != nil {
		panic("dataflow: gate output set twice")
	}
	g.Modify = slot.AddDefn(g)
}

func (g *Gate) replaceUse(original, replacement SlotNode) {
	if g.Predicate == original {
		g.Predicate = replacement
		return
	}
	if g.Read != original {
		panic(fmt.Sprintf("dataflow: %v does not read %v", g, original))
	}
	g.Read = replacement
}

func (g *Gate) replaceDefn(original, replacement SlotNode) {
	if g.Modify != original {
		panic(fmt.Sprintf("dataflow: %v does not define %v", g, original))
	}
	g.Modify = replacement
}

func (g *Gate) Forward() []Node {
	if g.Modify == nil {
		return nil
	}
	return []Node{g.Modify}
}

func (g *Gate) Reverse() []Node {
	var result []Node
	if g.Read != nil {
		result = append(result, g.Read)
	}
	if g.Predicate != nil {
		result = append(result, g.Predicate)
	}
	return result
}

func (g *Gate) String() string { return fmt.Sprintf("gate(%v, %v)", g.Read, g.Predicate) }

// A Merge combines one value per incoming path into a single output. Each
// input normally comes from a Gate in the contributing path's hyperblock.
type Merge struct {
	opCore
	Reads  []SlotNode
	Modify SlotNode
}

// IsPredicateOp reports whether the merge combines predicates.
func (m *Merge) IsPredicateOp() bool {
	if len(m.Reads) == 0 {
		return false
	}
	_, ok := m.Reads[0].(*PredicateSlot)
	return ok
}

func (m *Merge) AddRead(slot SlotNode) {
	if slot.Hyperblock() != nil && slot.Hyperblock() == m.hb {
		panic("dataflow: merge input from its own hyperblock")
	}
	m.Reads = append(m.Reads, slot.AddUse(m))
}

func (m *Merge) AddModify(slot SlotNode) {
	if m.Modify != nil {
		panic("dataflow: merge output set twice")
	}
	m.Modify = slot.AddDefn(m)
}

func (m *Merge) replaceUse(original, replacement SlotNode) {
	if !replaceSlot(m.Reads, original, replacement) {
		panic(fmt.Sprintf("dataflow: %v does not read %v", m, original))
	}
}

func (m *Merge) replaceDefn(original, replacement SlotNode) {
	if m.Modify != original {
		panic(fmt.Sprintf("dataflow: %v does not define %v", m, original))
	}
	m.Modify = replacement
}

func (m *Merge) Forward() []Node {
	if m.Modify == nil {
		return nil
	}
	return []Node{m.Modify}
}

func (m *Merge) Reverse() []Node { return slotsToNodes(m.Reads) }

func (m *Merge) String() string { return fmt.Sprintf("merge(%v, %d)", m.Modify, len(m.Reads)) }

// A Split fans a single value out to several uses. Splits are inserted
// automatically and collapse again when only one product remains.
type Split struct {
	opCore
	Read     SlotNode
	Modifies []SlotNode
}

// IsPredicateOp reports whether the split fans out a predicate.
func (s *Split) IsPredicateOp() bool {
	_, ok := s.Read.(*PredicateSlot)
	return ok
}

func (s *Split) addModify(slot SlotNode) {
	s.Modifies = append(s.Modifies, slot.AddDefn(s))
}

func (s *Split) replaceUse(original, replacement SlotNode) {
	if s.Read != original {
		panic(fmt.Sprintf("dataflow: %v does not read %v", s, original))
	}
	s.Read = replacement
}

func (s *Split) replaceDefn(original, replacement SlotNode) {
	if !replaceSlot(s.Modifies, original, replacement) {
		panic(fmt.Sprintf("dataflow: %v does not define %v", s, original))
	}
}

// Optimize collapses the split when a single product remains, reconnecting
// the input directly. Returns the surviving slot.
func (s *Split) Optimize() SlotNode {
	if len(s.Modifies) != 1 {
		return nil
	}
	in := s.Read
	out := s.Modifies[0]

	use := out.(flowSlot).fcore().use
	if use != nil {
		use.(opUser).replaceUse(out, in)
	}
	in.(flowSlot).fcore().use = use

	s.Read = nil
	s.Modifies = nil
	return in
}

func (s *Split) Forward() []Node { return slotsToNodes(s.Modifies) }

func (s *Split) Reverse() []Node {
	if s.Read == nil {
		return nil
	}
	return []Node{s.Read}
}

func (s *Split) String() string { return fmt.Sprintf("split(%v, %d)", s.Read, len(s.Modifies)) }

// A GenericOp is any computation from the source program: a load, store,
// branch or primitive operation. It reads locals and heap fields under a
// gating predicate and defines locals, heap fields and, for branches, one
// child predicate per arm.
type GenericOp struct {
	opCore
	predicated
	Op lang.Node

	LocalReads      map[lang.Expr]SlotNode
	HeapReads       map[*lang.Field]SlotNode
	HeapPseudoReads map[*lang.Field]SlotNode

	LocalModifies []SlotNode
	HeapModifies  map[*lang.Field]SlotNode
	Predicates    []SlotNode
}

func (op *GenericOp) SetPredicate(pred SlotNode) { op.setPredicate(op, pred) }

func (op *GenericOp) IsBranch() bool {
	switch op.Op.(type) {
	case *lang.TypeSwitch, *lang.Switch:
		return true
	}
	return false
}

func (op *GenericOp) IsTypeSwitch() bool {
	_, ok := op.Op.(*lang.TypeSwitch)
	return ok
}

func (op *GenericOp) IsLoad() bool {
	_, ok := op.Op.(*lang.Load)
	return ok
}

func (op *GenericOp) IsStore() bool {
	_, ok := op.Op.(*lang.Store)
	return ok
}

// AddLocalRead registers the value read for the given source operand.
func (op *GenericOp) AddLocalRead(name lang.Expr, slot SlotNode) {
	if prev, ok := op.LocalReads[name]; ok {
		if prev.Canonical() != slot.Canonical() {
			panic(fmt.Sprintf("dataflow: operand %v bound to two values", lang.FmtExpr(name)))
		}
		return
	}
	op.LocalReads[name] = slot.AddUse(op)
}

func (op *GenericOp) AddLocalModify(slot *LocalSlot) {
	op.LocalModifies = append(op.LocalModifies, slot.AddDefn(op))
}

func (op *GenericOp) AddHeapRead(f *lang.Field, slot SlotNode) {
	if _, dup := op.HeapReads[f]; dup {
		panic(fmt.Sprintf("dataflow: field %v read twice", f))
	}
	op.HeapReads[f] = slot.AddUse(op)
}

func (op *GenericOp) AddHeapModify(f *lang.Field, slot SlotNode) {
	if _, dup := op.HeapModifies[f]; dup {
		panic(fmt.Sprintf("dataflow: field %v modified twice", f))
	}
	op.HeapModifies[f] = slot.AddDefn(op)
}

// AddPseudoRead records a field the op must observe for ordering without
// reading its value.
func (op *GenericOp) AddPseudoRead(f *lang.Field, slot SlotNode) {
	if _, dup := op.HeapPseudoReads[f]; dup {
		panic(fmt.Sprintf("dataflow: field %v pseudo-read twice", f))
	}
	op.HeapPseudoReads[f] = slot.AddUse(op)
}

// AddPredicate registers a child predicate generated by this op.
func (op *GenericOp) AddPredicate(slot *PredicateSlot) {
	op.Predicates = append(op.Predicates, slot.AddDefn(op))
}

func (op *GenericOp) reset() {
	op.Predicate = nil
	op.LocalReads = map[lang.Expr]SlotNode{}
	op.HeapReads = map[*lang.Field]SlotNode{}
	op.HeapPseudoReads = map[*lang.Field]SlotNode{}
	op.LocalModifies = nil
	op.HeapModifies = map[*lang.Field]SlotNode{}
	op.Predicates = nil
}

// Destroy disconnects the op from every slot it touches.
func (op *GenericOp) Destroy() {
	if op.Predicate != nil {
		op.Predicate.RemoveUse(op)
	}
	for _, slot := range op.LocalReads {
		slot.RemoveUse(op)
	}
	for _, slot := range op.HeapReads {
		slot.RemoveUse(op)
	}
	for _, slot := range op.HeapPseudoReads {
		slot.RemoveUse(op)
	}
	for _, slot := range op.LocalModifies {
		slot.RemoveDefn(op)
	}
	for _, slot := range op.HeapModifies {
		slot.RemoveDefn(op)
	}
	for _, slot := range op.Predicates {
		slot.RemoveDefn(op)
	}
	op.reset()
}

func (op *GenericOp) replaceUse(original, replacement SlotNode) {
	if op.Predicate == original {
		op.Predicate = replacement
		return
	}
	for name, slot := range op.LocalReads {
		if slot == original {
			op.LocalReads[name] = replacement
			return
		}
	}
	for name, slot := range op.HeapReads {
		if slot == original {
			op.HeapReads[name] = replacement
			return
		}
	}
	for name, slot := range op.HeapPseudoReads {
		if slot == original {
			op.HeapPseudoReads[name] = replacement
			return
		}
	}
	panic(fmt.Sprintf("dataflow: %v does not read %v", op, original))
}

func (op *GenericOp) replaceDefn(original, replacement SlotNode) {
	if replaceSlot(op.LocalModifies, original, replacement) {
		return
	}
	for name, slot := range op.HeapModifies {
		if slot == original {
			op.HeapModifies[name] = replacement
			return
		}
	}
	if replaceSlot(op.Predicates, original, replacement) {
		return
	}
	panic(fmt.Sprintf("dataflow: %v does not define %v", op, original))
}

func (op *GenericOp) Forward() []Node {
	var result []Node
	for _, slot := range op.LocalModifies {
		result = append(result, slot)
	}
	for _, slot := range op.HeapModifies {
		result = append(result, slot)
	}
	for _, slot := range op.Predicates {
		result = append(result, slot)
	}
	return result
}

func (op *GenericOp) Reverse() []Node {
	var result []Node
	if op.Predicate != nil {
		result = append(result, op.Predicate)
	}
	for _, slot := range op.LocalReads {
		result = append(result, slot)
	}
	for _, slot := range op.HeapReads {
		result = append(result, slot)
	}
	for _, slot := range op.HeapPseudoReads {
		result = append(result, slot)
	}
	return result
}

func (op *GenericOp) String() string { return fmt.Sprintf("op(%T)", op.Op) }

func replaceSlot(slots []SlotNode, original, replacement SlotNode) bool {
	for i, slot := range slots {
		if slot == original {
			slots[i] = replacement
			return true
		}
	}
	return false
}

func slotsToNodes(slots []SlotNode) []Node {
	result := make([]Node, len(slots))
	for i, s := range slots {
		result[i] = s
	}
	return result
}

func opsToNodes(ops []OpNode) []Node {
	result := make([]Node, len(ops))
	for i, o := range ops {
		result[i] = o
	}
	return result
}

// Graph is the complete dataflow IR of one procedure.
type Graph struct {
	Entry *Entry
	Exit  *Exit

	Existing map[*lang.Object]*ExistingSlot
	Null     *NullSlot

	EntryPredicate *PredicateSlot

	ids int
}

// NewGraph returns a graph with an entry op and an entry predicate in the
// given hyperblock.
func NewGraph(hb *Hyperblock) *Graph {
	g := &Graph{Existing: map[*lang.Object]*ExistingSlot{}}

	g.Entry = &Entry{opCore: opCore{id: g.nextID(), hb: hb}, Modifies: map[any]SlotNode{}}
	g.Null = &NullSlot{id: g.nextID()}

	g.EntryPredicate = g.NewPredicate(hb, hb.String())
	g.Entry.AddEntry("*", g.EntryPredicate)
	g.Entry.AddEntry("null", g.Null)

	return g
}

func (g *Graph) nextID() int {
	id := g.ids
	g.ids++
	return id
}

// NumIDs returns an exclusive upper bound on the node IDs in this graph.
func (g *Graph) NumIDs() int { return g.ids }

// NewExit creates the exit op for the given hyperblock and installs it on
// the graph.
func (g *Graph) NewExit(hb *Hyperblock) *Exit {
	e := &Exit{opCore: opCore{id: g.nextID(), hb: hb}, Reads: map[any]SlotNode{}}
	g.Exit = e
	return e
}

func (g *Graph) NewLocal(hb *Hyperblock, names ...*lang.Local) *LocalSlot {
	list := append([]*lang.Local(nil), names...)
	slot := &LocalSlot{names: &list}
	slot.flowCore.init(g, hb, slot)
	return slot
}

func (g *Graph) NewPredicate(hb *Hyperblock, name string) *PredicateSlot {
	slot := &PredicateSlot{Name: name}
	slot.flowCore.init(g, hb, slot)
	return slot
}

func (g *Graph) NewField(hb *Hyperblock, f *lang.Field) *FieldSlot {
	slot := &FieldSlot{Name: f}
	slot.flowCore.init(g, hb, slot)
	return slot
}

func (g *Graph) NewGate(hb *Hyperblock) *Gate {
	return &Gate{opCore: opCore{id: g.nextID(), hb: hb}}
}

func (g *Graph) NewMerge(hb *Hyperblock) *Merge {
	return &Merge{opCore: opCore{id: g.nextID(), hb: hb}}
}

func (g *Graph) NewGenericOp(hb *Hyperblock, op lang.Node) *GenericOp {
	result := &GenericOp{opCore: opCore{id: g.nextID(), hb: hb}, Op: op}
	result.reset()
	return result
}

func (g *Graph) newSplit(hb *Hyperblock) *Split {
	return &Split{opCore: opCore{id: g.nextID(), hb: hb}}
}

// GetExisting returns the canonical slot for a constant object.
func (g *Graph) GetExisting(obj *lang.Object) *ExistingSlot {
	if slot, ok := g.Existing[obj]; ok {
		return slot
	}
	slot := &ExistingSlot{id: g.nextID(), Object: obj}
	g.Existing[obj] = slot
	return slot
}
