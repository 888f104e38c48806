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

// Package cfg builds and transforms per-procedure control-flow graphs.
//
// A CFG is a graph of blocks joined by named control edges. Each block kind
// has a fixed edge-name vocabulary; an unset edge means that exit is
// unreachable. Structural invariants (edge names, predecessor bookkeeping)
// are checked by hard panics: a violation is a builder defect, not a property
// of the analyzed program.
package cfg

import (
	"fmt"

	"github.com/awslabs/dynflow/analysis/lang"
	fn "github.com/awslabs/dynflow/internal/funcutil"
)

// EdgeName names a control transfer out of a block.
type EdgeName string

const (
	EdgeEntry  EdgeName = "entry"
	EdgeNormal EdgeName = "normal"
	EdgeTrue   EdgeName = "true"
	EdgeFalse  EdgeName = "false"
	EdgeFail   EdgeName = "fail"
	EdgeError  EdgeName = "error"
)

// CaseEdge returns the edge name for the i-th case of a TypeSwitch.
func CaseEdge(i int) EdgeName {
	return EdgeName(fmt.Sprintf("case%d", i))
}

// A Pred is one incoming edge: the predecessor block and the exit name it
// reaches this block through.
type Pred struct {
	Block Block
	Name  EdgeName
}

// Block is a CFG node. The set of implementations is closed: Entry, Terminal,
// Suite, Switch, TypeSwitch, Merge and Yield.
type Block interface {
	base() *blockCore

	addPrev(prev Block, name EdgeName)
	removePrev(prev Block, name EdgeName)
	replacePrev(old Block, oldName EdgeName, repl Block, replName EdgeName)

	// ValidExitName reports whether name belongs to this block kind's
	// edge vocabulary.
	ValidExitName(name EdgeName) bool

	// SetExit connects the named exit to other. The exit must be valid and
	// unset. A nil other is ignored.
	SetExit(name EdgeName, other Block)

	// Exit returns the successor on the named exit, or nil.
	Exit(name EdgeName) Block

	// KillExit disconnects the named exit if it is set.
	KillExit(name EdgeName)

	// RedirectExit moves the exit currently pointing at oldExit onto newExit.
	RedirectExit(oldExit, newExit Block)

	// ForwardExit bypasses other: the exit of this block pointing at other is
	// re-pointed at other's successor on the given name.
	ForwardExit(other Block, name EdgeName)

	// InsertAtExit splices block into the named edge:
	// self{name} -> succ becomes self{name} -> block{blockExitName} -> succ.
	InsertAtExit(name EdgeName, block Block, blockExitName EdgeName)

	// Destroy disconnects every exit of this block.
	Destroy()

	// Forward returns all successors.
	Forward() []Block

	// Reverse returns all predecessors.
	Reverse() []Block

	// Preds returns all incoming edges in order.
	Preds() []Pred

	// RedirectEntries re-points every incoming edge at other.
	RedirectEntries(other Block)

	// SanityCheck panics when the bidirectional links are inconsistent.
	SanityCheck()

	String() string
}

// blockCore carries the state shared by every block kind: the named exits,
// the incoming edges, and the identity of the enclosing concrete block.
type blockCore struct {
	self      Block
	exitNames []EdgeName
	next      map[EdgeName]Block

	// multi selects list-style predecessor tracking (Merge); otherwise a
	// block accepts at most one incoming edge.
	multi bool
	prev  Pred
	prevs []Pred
}

func (c *blockCore) init(self Block, multi bool, exitNames ...EdgeName) {
	c.self = self
	c.multi = multi
	c.exitNames = exitNames
	c.next = map[EdgeName]Block{}
}

func (c *blockCore) base() *blockCore { return c }

func (c *blockCore) ValidExitName(name EdgeName) bool {
	return fn.Contains(c.exitNames, name)
}

func (c *blockCore) SetExit(name EdgeName, other Block) {
	if !c.self.ValidExitName(name) {
		panic(fmt.Sprintf("cfg: %s has no exit named %q", c.self, name))
	}
	if _, set := c.next[name]; set {
		panic(fmt.Sprintf("cfg: exit %q of %s set twice", name, c.self))
	}
	if other != nil {
		c.next[name] = other
		other.addPrev(c.self, name)
	}
}

func (c *blockCore) Exit(name EdgeName) Block {
	if !c.self.ValidExitName(name) {
		panic(fmt.Sprintf("cfg: %s has no exit named %q", c.self, name))
	}
	return c.next[name]
}

func (c *blockCore) KillExit(name EdgeName) {
	if next, ok := c.next[name]; ok {
		next.removePrev(c.self, name)
		delete(c.next, name)
	}
}

func (c *blockCore) findExit(e Block) fn.Optional[EdgeName] {
	for k, v := range c.next {
		if v == e {
			return fn.Some(k)
		}
	}
	return fn.None[EdgeName]()
}

func (c *blockCore) RedirectExit(oldExit, newExit Block) {
	name := c.findExit(oldExit)
	if name.IsNone() {
		panic(fmt.Sprintf("cfg: %s has no exit pointing at %s", c.self, oldExit))
	}
	c.KillExit(name.Value())
	c.SetExit(name.Value(), newExit)
}

func (c *blockCore) ForwardExit(other Block, name EdgeName) {
	if other == nil {
		panic("cfg: forwarding a nil block")
	}
	oc := other.base()
	next, ok := oc.next[name]
	if ok {
		delete(oc.next, name)
	}

	selfExit := c.findExit(other)
	if selfExit.IsNone() {
		panic(fmt.Sprintf("cfg: %s has no exit pointing at %s", c.self, other))
	}
	c.KillExit(selfExit.Value())

	if next != nil {
		c.next[selfExit.Value()] = next
		next.replacePrev(other, name, c.self, selfExit.Value())
	}
}

func (c *blockCore) InsertAtExit(name EdgeName, block Block, blockExitName EdgeName) {
	current, ok := c.next[name]
	if !ok {
		panic(fmt.Sprintf("cfg: exit %q of %s is unset", name, c.self))
	}
	current.replacePrev(c.self, name, block, blockExitName)

	c.next[name] = block
	block.addPrev(c.self, name)
	block.base().next[blockExitName] = current
}

func (c *blockCore) Destroy() {
	for k, v := range c.next {
		v.removePrev(c.self, k)
	}
	c.next = map[EdgeName]Block{}
}

func (c *blockCore) Forward() []Block {
	var result []Block
	for _, next := range c.next {
		result = append(result, next)
	}
	return result
}

func (c *blockCore) addPrev(prev Block, name EdgeName) {
	if c.multi {
		c.prevs = append(c.prevs, Pred{prev, name})
		return
	}
	if c.prev.Block != nil {
		panic(fmt.Sprintf("cfg: %s already has a predecessor", c.self))
	}
	c.prev = Pred{prev, name}
}

func (c *blockCore) removePrev(prev Block, name EdgeName) {
	if c.multi {
		for i, p := range c.prevs {
			if p.Block == prev && p.Name == name {
				c.prevs = append(c.prevs[:i], c.prevs[i+1:]...)
				return
			}
		}
		panic(fmt.Sprintf("cfg: %s is not a predecessor of %s", prev, c.self))
	}
	if c.prev != (Pred{prev, name}) {
		panic(fmt.Sprintf("cfg: %s is not the predecessor of %s", prev, c.self))
	}
	c.prev = Pred{}
}

func (c *blockCore) replacePrev(old Block, oldName EdgeName, repl Block, replName EdgeName) {
	if c.multi {
		for i, p := range c.prevs {
			if p.Block == old && p.Name == oldName {
				c.prevs[i] = Pred{repl, replName}
				return
			}
		}
		return
	}
	if c.prev != (Pred{old, oldName}) {
		panic(fmt.Sprintf("cfg: %s is not the predecessor of %s", old, c.self))
	}
	c.prev = Pred{repl, replName}
}

func (c *blockCore) Preds() []Pred {
	if c.multi {
		return c.prevs
	}
	if c.prev.Block == nil {
		return nil
	}
	return []Pred{c.prev}
}

func (c *blockCore) Reverse() []Block {
	return fn.Map(c.self.Preds(), func(p Pred) Block { return p.Block })
}

func (c *blockCore) RedirectEntries(other Block) {
	if c.multi {
		old := c.prevs
		c.prevs = nil
		for _, p := range old {
			p.Block.RedirectExit(c.self, other)
		}
		return
	}
	if c.prev.Block != nil {
		c.prev.Block.RedirectExit(c.self, other)
	}
}

func (c *blockCore) SanityCheck() {
	for _, child := range c.self.Forward() {
		if !fn.Exists(child.Reverse(), func(b Block) bool { return b == c.self }) {
			panic(fmt.Sprintf("cfg: %s missing from predecessors of %s", c.self, child))
		}
	}
	for _, p := range c.self.Preds() {
		if p.Block.Exit(p.Name) != c.self {
			panic(fmt.Sprintf("cfg: exit %q of %s does not reach %s", p.Name, p.Block, c.self))
		}
	}
}

// Entry is the unique entry point of a procedure's CFG.
type Entry struct {
	blockCore
}

// NewEntry returns a fresh entry block.
func NewEntry() *Entry {
	e := &Entry{}
	e.init(e, false, EdgeEntry)
	return e
}

func (e *Entry) String() string { return "entry" }

// Terminal is one of the fixed exit points of a procedure: normal return,
// fail, or error. Terminals have no exits.
type Terminal struct {
	blockCore
	Name string
}

// NewTerminal returns a terminal with the given name.
func NewTerminal(name string) *Terminal {
	t := &Terminal{Name: name}
	t.init(t, false)
	return t
}

func (t *Terminal) String() string { return "terminal(" + t.Name + ")" }

// Suite is a straight-line run of operations with a single normal successor.
type Suite struct {
	blockCore
	Ops []lang.Stmt
}

// NewSuite returns an empty suite block.
func NewSuite() *Suite {
	s := &Suite{}
	s.init(s, false, EdgeNormal, EdgeFail, EdgeError)
	return s
}

func (s *Suite) String() string { return fmt.Sprintf("suite(%d ops)", len(s.Ops)) }

// Simplify removes the suite when it is empty, forwarding its predecessor's
// exit to its successor.
func (s *Suite) Simplify() {
	if len(s.Ops) != 0 {
		return
	}
	if prev := s.prev.Block; prev != nil {
		prev.ForwardExit(s, EdgeNormal)
	}
	s.Destroy()
}

// Switch is a two-way branch on a condition.
type Switch struct {
	blockCore
	Cond lang.Expr
}

// NewSwitch returns a switch testing cond.
func NewSwitch(cond lang.Expr) *Switch {
	s := &Switch{Cond: cond}
	s.init(s, false, EdgeTrue, EdgeFalse, EdgeFail, EdgeError)
	return s
}

func (s *Switch) String() string { return "switch " + lang.FmtExpr(s.Cond) }

// TypeSwitch dispatches over the runtime type of its scrutinee; each case has
// its own indexed exit.
type TypeSwitch struct {
	blockCore
	Original *lang.TypeSwitch
}

// NewTypeSwitch returns a type-switch block with one exit per case of the
// original statement.
func NewTypeSwitch(original *lang.TypeSwitch) *TypeSwitch {
	t := &TypeSwitch{Original: original}
	names := []EdgeName{EdgeFail, EdgeError}
	for i := range original.Cases {
		names = append(names, CaseEdge(i))
	}
	t.init(t, false, names...)
	return t
}

func (t *TypeSwitch) String() string {
	return fmt.Sprintf("typeswitch(%d cases)", len(t.Original.Cases))
}

// Yield marks a suspension point of the analyzed procedure. It is the only
// block kind that suspends; the analyzer itself treats it as a pass-through.
type Yield struct {
	blockCore
	Op *lang.Yield
}

// NewYield returns a yield block for the given statement.
func NewYield(op *lang.Yield) *Yield {
	y := &Yield{Op: op}
	y.init(y, false, EdgeNormal)
	return y
}

func (y *Yield) String() string { return "yield" }

// A Phi records, per incoming edge of a merge, which value becomes the target
// variable. Arguments is aligned with the merge's predecessor list; a nil
// argument means the corresponding path supplies no value.
type Phi struct {
	Arguments []lang.Expr
	Target    *lang.Local
}

// Merge is a join point owning the phi entries for the paths it joins.
type Merge struct {
	blockCore
	Phi []*Phi
}

// NewMerge returns an empty merge block.
func NewMerge() *Merge {
	m := &Merge{}
	m.init(m, true, EdgeNormal)
	return m
}

func (m *Merge) String() string { return fmt.Sprintf("merge(%d preds)", len(m.prevs)) }

// NumPrev returns the number of incoming edges.
func (m *Merge) NumPrev() int { return len(m.prevs) }

func (m *Merge) addPrev(prev Block, name EdgeName) {
	if len(m.Phi) != 0 {
		panic(fmt.Sprintf("cfg: predecessor added to %s after phi creation", m))
	}
	m.blockCore.addPrev(prev, name)
}

// removePrev drops the incoming edge and the aligned phi arguments.
func (m *Merge) removePrev(prev Block, name EdgeName) {
	for i, p := range m.prevs {
		if p.Block == prev && p.Name == name {
			m.prevs = append(m.prevs[:i], m.prevs[i+1:]...)
			for _, phi := range m.Phi {
				phi.Arguments = append(phi.Arguments[:i], phi.Arguments[i+1:]...)
			}
			return
		}
	}
	panic(fmt.Sprintf("cfg: %s is not a predecessor of %s", prev, m))
}

func (m *Merge) RedirectEntries(other Block) {
	if len(m.Phi) != 0 {
		panic(fmt.Sprintf("cfg: entries of %s redirected while phi entries remain", m))
	}
	m.blockCore.RedirectEntries(other)
}

// Simplify collapses a degenerate merge with exactly one predecessor and no
// phi entries.
func (m *Merge) Simplify() {
	if len(m.prevs) == 1 && len(m.Phi) == 0 {
		m.prevs[0].Block.ForwardExit(m, EdgeNormal)
	}
}

// Code is the CFG of one procedure: the entry terminal and the three exit
// terminals, plus the source it was built from.
type Code struct {
	Source *lang.Code

	EntryTerminal  *Entry
	NormalTerminal *Terminal
	FailTerminal   *Terminal
	ErrorTerminal  *Terminal
}

// NewCode returns a CFG shell with fresh terminals for the given procedure.
func NewCode(source *lang.Code) *Code {
	return &Code{
		Source:         source,
		EntryTerminal:  NewEntry(),
		NormalTerminal: NewTerminal("normal"),
		FailTerminal:   NewTerminal("fail"),
		ErrorTerminal:  NewTerminal("error"),
	}
}
