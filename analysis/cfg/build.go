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
	"fmt"

	"github.com/awslabs/dynflow/analysis/lang"
)

// flow is the result of lowering one statement: either control falls through
// to the next statement, or it has been routed elsewhere (return, break,
// continue, or a join where every arm terminated).
type flow int

const (
	flowContinues flow = iota
	flowDiverges
)

const (
	hReturn   = "return"
	hFail     = "fail"
	hError    = "error"
	hContinue = "continue"
	hBreak    = "break"
)

// builder lowers a procedure body into a CFG. It maintains the suite
// currently being filled and a stack of handler merges per control-transfer
// kind; return, break and continue statements attach the open suite to the
// innermost matching handler.
type builder struct {
	code     *Code
	current  *Suite
	handlers map[string][]*Merge

	// result of the most recent statement dispatch.
	result flow
}

// Build lowers the body of source into a fresh control-flow graph.
func Build(source *lang.Code) *Code {
	b := &builder{
		handlers: map[string][]*Merge{},
	}
	b.code = NewCode(source)

	b.pushHandler(hReturn, b.mergeInto(b.code.NormalTerminal))
	b.pushHandler(hFail, b.mergeInto(b.code.FailTerminal))
	b.pushHandler(hError, b.mergeInto(b.code.ErrorTerminal))

	b.code.EntryTerminal.SetExit(EdgeEntry, b.makeNewSuite())

	if b.process(source.Body) == flowContinues {
		b.attachCurrent(b.handler(hReturn))
	}

	b.popHandler(hReturn)
	b.popHandler(hFail)
	b.popHandler(hError)

	return b.code
}

func (b *builder) process(stmt lang.Stmt) flow {
	lang.StmtSwitch(b, stmt)
	return b.result
}

// processOpt lowers an optional clause; a missing clause trivially continues.
func (b *builder) processOpt(suite *lang.Suite) flow {
	if suite == nil {
		return flowContinues
	}
	return b.process(suite)
}

func (b *builder) emit(op lang.Stmt) {
	if b.current == nil {
		panic(fmt.Sprintf("cfg: emitting %s with no open suite", lang.FmtStmt(op)))
	}
	b.current.Ops = append(b.current.Ops, op)
}

// attachCurrent routes the open suite's normal exit to child and closes it.
// An empty suite is elided rather than kept in the graph.
func (b *builder) attachCurrent(child Block) {
	if len(b.current.Ops) == 0 {
		b.current.RedirectEntries(child)
		b.current.Destroy()
	} else {
		b.current.SetExit(EdgeNormal, child)
	}
	b.current = nil
}

func (b *builder) makeNewSuite() *Suite {
	s := NewSuite()
	b.attachStandardHandlers(s)
	b.current = s
	return s
}

func (b *builder) attachStandardHandlers(block Block) {
	block.SetExit(EdgeFail, b.handler(hFail))
	block.SetExit(EdgeError, b.handler(hError))
}

// mergeInto returns a fresh merge whose normal exit is the given block.
func (b *builder) mergeInto(block Block) *Merge {
	m := NewMerge()
	m.SetExit(EdgeNormal, block)
	return m
}

func (b *builder) pushHandler(name string, m *Merge) {
	b.handlers[name] = append(b.handlers[name], m)
}

func (b *builder) popHandler(name string) {
	stack := b.handlers[name]
	b.handlers[name] = stack[:len(stack)-1]
}

func (b *builder) handler(name string) *Merge {
	stack := b.handlers[name]
	if len(stack) == 0 {
		panic("cfg: no handler for " + name)
	}
	return stack[len(stack)-1]
}

func (b *builder) DoStore(op *lang.Store) {
	b.emit(op)
	b.result = flowContinues
}

func (b *builder) DoAssign(op *lang.Assign) {
	b.emit(op)
	b.result = flowContinues
}

func (b *builder) DoDiscard(op *lang.Discard) {
	b.emit(op)
	b.result = flowContinues
}

func (b *builder) DoReturn(op *lang.Return) {
	b.emit(op)
	b.attachCurrent(b.handler(hReturn))
	b.result = flowDiverges
}

func (b *builder) DoBreak(op *lang.Break) {
	b.attachCurrent(b.handler(hBreak))
	b.result = flowDiverges
}

func (b *builder) DoContinue(op *lang.Continue) {
	b.attachCurrent(b.handler(hContinue))
	b.result = flowDiverges
}

func (b *builder) DoYield(op *lang.Yield) {
	y := NewYield(op)
	b.attachCurrent(y)
	y.SetExit(EdgeNormal, b.makeNewSuite())
	b.result = flowContinues
}

func (b *builder) DoSuite(suite *lang.Suite) {
	if b.current == nil {
		b.makeNewSuite()
	}
	for _, op := range suite.Ops {
		if b.process(op) == flowDiverges {
			// The remaining statements are unreachable.
			b.result = flowDiverges
			return
		}
	}
	b.result = flowContinues
}

func (b *builder) DoSwitch(node *lang.Switch) {
	if b.processOpt(node.Condition.Preamble) == flowDiverges {
		b.result = flowDiverges
		return
	}

	sw := NewSwitch(node.Condition.Conditional)
	b.attachStandardHandlers(sw)
	b.attachCurrent(sw)

	var open []*Suite

	sw.SetExit(EdgeTrue, b.makeNewSuite())
	if b.processOpt(node.T) == flowContinues {
		open = append(open, b.current)
	}

	sw.SetExit(EdgeFalse, b.makeNewSuite())
	if b.processOpt(node.F) == flowContinues {
		open = append(open, b.current)
	}

	b.joinBranches(open)
}

func (b *builder) DoTypeSwitch(node *lang.TypeSwitch) {
	sw := NewTypeSwitch(node)
	b.attachStandardHandlers(sw)
	b.attachCurrent(sw)

	var open []*Suite

	for i, c := range node.Cases {
		sw.SetExit(CaseEdge(i), b.makeNewSuite())
		if c.Binding != nil {
			b.emit(&lang.Assign{Expr: node.Conditional, Targets: []*lang.Local{c.Binding}})
		}
		if b.processOpt(c.Body) == flowContinues {
			open = append(open, b.current)
		}
	}

	b.joinBranches(open)
}

// joinBranches merges the arms that still continue. With a single open arm no
// merge is needed; with none the whole construct diverges.
func (b *builder) joinBranches(open []*Suite) {
	switch len(open) {
	case 0:
		b.current = nil
		b.result = flowDiverges
	case 1:
		b.current = open[0]
		b.result = flowContinues
	default:
		m := NewMerge()
		for _, s := range open {
			s.SetExit(EdgeNormal, m)
		}
		next := b.makeNewSuite()
		m.SetExit(EdgeNormal, next)
		b.result = flowContinues
	}
}

func (b *builder) DoWhile(node *lang.While) {
	c := NewMerge()
	b.attachCurrent(c)

	bm := NewMerge()
	e := NewMerge()

	c.SetExit(EdgeNormal, b.makeNewSuite())
	if b.processOpt(node.Condition.Preamble) == flowDiverges {
		panic("cfg: loop condition preamble diverges")
	}

	sw := NewSwitch(node.Condition.Conditional)
	b.attachStandardHandlers(sw)
	b.attachCurrent(sw)

	sw.SetExit(EdgeTrue, b.makeNewSuite())

	b.pushHandler(hContinue, c)
	b.pushHandler(hBreak, bm)
	if b.process(node.Body) == flowContinues {
		b.attachCurrent(c)
	}
	b.popHandler(hContinue)
	b.popHandler(hBreak)

	sw.SetExit(EdgeFalse, e)

	e.SetExit(EdgeNormal, b.makeNewSuite())
	if b.processOpt(node.Else) == flowContinues {
		b.attachCurrent(bm)
	}

	bm.SetExit(EdgeNormal, b.makeNewSuite())

	c.Simplify()
	bm.Simplify()
	e.Simplify()

	b.result = flowContinues
}

func (b *builder) DoFor(node *lang.For) {
	if b.processOpt(node.LoopPreamble) == flowDiverges {
		b.result = flowDiverges
		return
	}

	c := NewMerge()
	b.attachCurrent(c)

	bm := NewMerge()
	e := NewMerge()

	// The body preamble advances the iterator; exhaustion surfaces as its
	// fail exit, which leaves the loop instead of reaching the enclosing
	// fail handler.
	body := NewSuite()
	body.SetExit(EdgeFail, e)
	body.SetExit(EdgeError, b.handler(hError))
	b.current = body
	c.SetExit(EdgeNormal, body)

	if b.processOpt(node.BodyPreamble) == flowDiverges {
		panic("cfg: loop body preamble diverges")
	}

	b.pushHandler(hContinue, c)
	b.pushHandler(hBreak, bm)
	if b.process(node.Body) == flowContinues {
		b.attachCurrent(c)
	}
	b.popHandler(hContinue)
	b.popHandler(hBreak)

	e.SetExit(EdgeNormal, b.makeNewSuite())
	if b.processOpt(node.Else) == flowContinues {
		b.attachCurrent(bm)
	}

	bm.SetExit(EdgeNormal, b.makeNewSuite())

	c.Simplify()
	bm.Simplify()
	e.Simplify()

	b.result = flowContinues
}
