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
	fn "github.com/awslabs/dynflow/internal/funcutil"
	"github.com/awslabs/dynflow/internal/graphutil"
)

// ConvertToSSA renames the graph so every local has a single definition and
// places phi entries on the merges where paths carrying different versions
// join. The rewrite never touches the source AST: statements and expressions
// are rebuilt with fresh nodes, and each definition binds a fresh *Local.
//
// Placement is pruned: a phi is materialized only when its target is actually
// read downstream, directly or through another phi. Merges on fail and error
// dispatch paths never feed a read, so no phi lands on an edge ExpandPhi
// cannot rewrite.
//
// Single-target assignments from a local or a constant are propagated into
// the renaming frame and dropped; their value reappears as a phi argument or
// inlined at the use.
func ConvertToSSA(code *Code) {
	s := &ssaState{
		code:    code,
		ids:     map[Block]int{},
		defs:    map[*lang.Local][]Block{},
		df:      map[Block][]*Merge{},
		phiVars: map[*Merge][]*lang.Local{},
		frames:  map[Block]frame{},
		read:    map[*lang.Local]bool{},
	}
	s.computeOrder()
	s.computeDominance()
	s.collectDefs()
	s.placePhiSites()
	s.rename()
	s.installPhis()
}

// frame maps each source variable to the expression standing for its current
// value on the path being renamed.
type frame map[*lang.Local]lang.Expr

// A phiSite is a merge where a variable needs a join, paired with the fresh
// local masking it downstream. The phi itself is only installed when the
// target turns out to be read.
type phiSite struct {
	merge     *Merge
	name      *lang.Local
	target    *lang.Local
	installed bool
}

type ssaState struct {
	code  *Code
	order []Block
	ids   map[Block]int
	idom  map[Block]Block

	varOrder []*lang.Local
	defs     map[*lang.Local][]Block

	df      map[Block][]*Merge
	phiVars map[*Merge][]*lang.Local

	frames  map[Block]frame
	read    map[*lang.Local]bool
	pending []*phiSite
}

// computeOrder indexes the reachable blocks in reverse postorder, the entry
// terminal first. Every block then appears after at least one of its
// predecessors, back edges into merges excepted.
func (s *ssaState) computeOrder() {
	dfs := NewDFS(nil, func(block Block) {
		s.order = append(s.order, block)
	})
	dfs.Process(s.code.EntryTerminal)
	fn.Reverse(s.order)

	for i, b := range s.order {
		s.ids[b] = i
	}
}

// computeDominance builds the dominator tree over the block graph and derives
// each block's dominance frontier. Merges are the only join points, so the
// frontier walk runs per merge predecessor up the dominator chain.
func (s *ssaState) computeDominance() {
	dg := graphutil.NewDGraph(len(s.order))
	for _, b := range s.order {
		for _, next := range b.Forward() {
			dg.AddEdge(int64(s.ids[b]), int64(s.ids[next]))
		}
	}

	s.idom = map[Block]Block{}
	for child, dom := range dg.ImmediateDominators(0) {
		s.idom[s.order[child]] = s.order[dom]
	}

	seen := map[Block]map[*Merge]bool{}
	for _, b := range s.order {
		m, ok := b.(*Merge)
		if !ok || m.NumPrev() < 2 {
			continue
		}
		for _, p := range m.Preds() {
			for runner := p.Block; runner != nil && runner != s.idom[m]; runner = s.idom[runner] {
				if seen[runner] == nil {
					seen[runner] = map[*Merge]bool{}
				}
				if !seen[runner][m] {
					seen[runner][m] = true
					s.df[runner] = append(s.df[runner], m)
				}
			}
		}
	}
}

func (s *ssaState) addDef(v *lang.Local, b Block) {
	if _, known := s.defs[v]; !known {
		s.varOrder = append(s.varOrder, v)
	}
	if !fn.Exists(s.defs[v], func(d Block) bool { return d == b }) {
		s.defs[v] = append(s.defs[v], b)
	}
}

// collectDefs records which blocks define each variable. Parameters are
// definitions at the entry; otherwise only suite assignments define locals.
func (s *ssaState) collectDefs() {
	for _, p := range s.code.Source.Parameters {
		s.addDef(p, s.code.EntryTerminal)
	}
	for _, b := range s.order {
		suite, ok := b.(*Suite)
		if !ok {
			continue
		}
		for _, op := range suite.Ops {
			if assign, ok := op.(*lang.Assign); ok {
				for _, t := range assign.Targets {
					s.addDef(t, suite)
				}
			}
		}
	}
}

// placePhiSites runs the iterated dominance frontier per variable: a merge in
// the frontier of any definition needs a join, and the join itself counts as
// a new definition.
func (s *ssaState) placePhiSites() {
	for _, v := range s.varOrder {
		sites := map[*Merge]bool{}
		work := append([]Block(nil), s.defs[v]...)
		for len(work) > 0 {
			b := work[len(work)-1]
			work = work[:len(work)-1]
			for _, m := range s.df[b] {
				if !sites[m] {
					sites[m] = true
					s.phiVars[m] = append(s.phiVars[m], v)
					work = append(work, m)
				}
			}
		}
	}
}

// rename walks the blocks in reverse postorder, threading a frame through
// each. A block starts from a copy of the first predecessor frame already
// computed; a merge additionally masks its phi-site variables with fresh
// locals so downstream paths read the joined version.
func (s *ssaState) rename() {
	for _, b := range s.order {
		f := s.startFrame(b)

		switch b := b.(type) {
		case *Entry:
			for _, p := range s.code.Source.Parameters {
				f[p] = p
			}
		case *Merge:
			for _, v := range s.phiVars[b] {
				target := v.Clone()
				f[v] = target
				s.pending = append(s.pending, &phiSite{merge: b, name: v, target: target})
			}
		case *Suite:
			b.Ops = s.renameOps(f, b.Ops)
		case *Switch:
			b.Cond = s.renameExpr(f, b.Cond)
		case *TypeSwitch:
			b.Original = &lang.TypeSwitch{
				Conditional: s.renameExpr(f, b.Original.Conditional),
				Cases:       b.Original.Cases,
			}
		case *Yield:
			if b.Op.Value != nil {
				b.Op = &lang.Yield{Value: s.renameExpr(f, b.Op.Value)}
			}
		}

		s.frames[b] = f
	}
}

func (s *ssaState) startFrame(b Block) frame {
	f := frame{}
	for _, p := range b.Preds() {
		prev, done := s.frames[p.Block]
		if !done {
			continue
		}
		for k, v := range prev {
			f[k] = v
		}
		break
	}
	return f
}

func (s *ssaState) renameOps(f frame, ops []lang.Stmt) []lang.Stmt {
	var out []lang.Stmt
	for _, op := range ops {
		switch op := op.(type) {
		case *lang.Assign:
			expr := s.renameExpr(f, op.Expr)
			if len(op.Targets) == 1 && isCopySource(expr) {
				f[op.Targets[0]] = expr
				continue
			}
			targets := make([]*lang.Local, len(op.Targets))
			for i, t := range op.Targets {
				targets[i] = t.Clone()
				f[t] = targets[i]
			}
			out = append(out, &lang.Assign{Expr: expr, Targets: targets})
		case *lang.Store:
			out = append(out, &lang.Store{
				Expr:       s.renameExpr(f, op.Expr),
				FieldKind:  op.FieldKind,
				Name:       s.renameExpr(f, op.Name),
				Value:      s.renameExpr(f, op.Value),
				Annotation: op.Annotation,
			})
		case *lang.Discard:
			out = append(out, &lang.Discard{Expr: s.renameExpr(f, op.Expr)})
		case *lang.Return:
			if op.Value == nil {
				out = append(out, op)
			} else {
				out = append(out, &lang.Return{Value: s.renameExpr(f, op.Value)})
			}
		default:
			panic(fmt.Sprintf("cfg: cannot rename %s", lang.FmtStmt(op)))
		}
	}
	return out
}

// isCopySource reports whether expr can stand in for the assigned variable at
// its uses, making the assignment itself redundant.
func isCopySource(expr lang.Expr) bool {
	switch expr.(type) {
	case *lang.Local, *lang.Existing:
		return true
	}
	return false
}

func (s *ssaState) renameExpr(f frame, expr lang.Expr) lang.Expr {
	switch expr := expr.(type) {
	case *lang.Local:
		return s.use(f, expr)
	case *lang.Existing:
		return expr
	case *lang.BinOp:
		return &lang.BinOp{
			Left:  s.renameExpr(f, expr.Left),
			Op:    expr.Op,
			Right: s.renameExpr(f, expr.Right),
		}
	case *lang.Load:
		return &lang.Load{
			Expr:       s.renameExpr(f, expr.Expr),
			FieldKind:  expr.FieldKind,
			Name:       s.renameExpr(f, expr.Name),
			Annotation: expr.Annotation,
		}
	default:
		panic(expr)
	}
}

// use resolves a variable read against the frame. A read before any write
// binds a fresh version so later writes on the same path stay distinct.
func (s *ssaState) use(f frame, l *lang.Local) lang.Expr {
	v, ok := f[l]
	if !ok {
		v = l.Clone()
		f[l] = v
	}
	if local, ok := v.(*lang.Local); ok {
		s.read[local] = true
	}
	return v
}

// installPhis materializes the pending sites whose target is read. Phi
// arguments are the values the predecessor frames carry, aligned with the
// merge's predecessor order; an argument read from another pending site makes
// that site live, so installation iterates to a fixed point.
func (s *ssaState) installPhis() {
	for {
		changed := false
		for _, site := range s.pending {
			if site.installed || !s.read[site.target] {
				continue
			}
			site.installed = true
			changed = true

			preds := site.merge.Preds()
			args := make([]lang.Expr, len(preds))
			for i, p := range preds {
				args[i] = s.frames[p.Block][site.name]
				if local, ok := args[i].(*lang.Local); ok {
					s.read[local] = true
				}
			}
			site.merge.Phi = append(site.merge.Phi, &Phi{Arguments: args, Target: site.target})
		}
		if !changed {
			return
		}
	}
}
