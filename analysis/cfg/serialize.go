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
)

// A Transfer is one simultaneous assignment Dst = Src contributed by a phi
// entry along a single predecessor edge.
type Transfer struct {
	Src lang.Expr
	Dst *lang.Local
}

// MultipleDefinitionError reports a phi destination defined more than once on
// the same edge. This is a builder defect.
type MultipleDefinitionError struct {
	Dst *lang.Local
}

func (e *MultipleDefinitionError) Error() string {
	return fmt.Sprintf("cfg: multiple definitions of %s in simultaneous assignment", lang.FmtExpr(e.Dst))
}

// serializer orders a set of simultaneous assignments into a sequence of
// ordinary assignments with the same meaning. It walks the reverse dependency
// graph (destination to source) depth first; a destination reached again
// while still on the walk stack sits on a cycle, and its old value is saved
// into a fresh temporary before it is overwritten.
type serializer struct {
	genTemp func(*lang.Local) *lang.Local

	g       map[*lang.Local]lang.Expr
	result  []Transfer
	temps   []*lang.Local
	remap   map[*lang.Local]*lang.Local
	current map[*lang.Local]bool
}

// SerializeTransfers converts simultaneous assignments into a sequential list
// with identical semantics, using genTemp to mint temporaries where a
// dependency cycle forces one. It returns the ordered assignments and the
// temporaries created.
func SerializeTransfers(transfers []Transfer, genTemp func(*lang.Local) *lang.Local) ([]Transfer, []*lang.Local, error) {
	s := &serializer{
		genTemp: genTemp,
		g:       map[*lang.Local]lang.Expr{},
		remap:   map[*lang.Local]*lang.Local{},
		current: map[*lang.Local]bool{},
	}

	entries := make([]*lang.Local, 0, len(transfers))
	for _, t := range transfers {
		if _, dup := s.g[t.Dst]; dup {
			return nil, nil, &MultipleDefinitionError{Dst: t.Dst}
		}
		s.g[t.Dst] = t.Src
		entries = append(entries, t.Dst)
	}

	// Visiting the entries in reverse and reversing the output afterwards
	// yields the transfers in dependency order: every read of a value
	// happens before the assignment that clobbers it.
	for i := len(entries) - 1; i >= 0; i-- {
		s.visit(entries[i])
	}
	fn.Reverse(s.result)

	return s.result, s.temps, nil
}

func (s *serializer) visit(node lang.Expr) {
	dst, ok := node.(*lang.Local)
	if !ok {
		return
	}

	if src, defined := s.g[dst]; defined {
		delete(s.g, dst)
		s.current[dst] = true

		s.visit(src)
		s.emitTransfer(src, dst)

		if t, saved := s.remap[dst]; saved {
			// Restore order is fixed up by the final reversal: the save
			// into the temporary ends up before this overwrite.
			s.result = append(s.result, Transfer{Src: dst, Dst: t})
			delete(s.remap, dst)
		}

		delete(s.current, dst)
	} else if s.current[dst] {
		s.save(dst)
	}
}

func (s *serializer) emitTransfer(src lang.Expr, dst *lang.Local) {
	if local, ok := src.(*lang.Local); ok {
		if t, saved := s.remap[local]; saved {
			src = t
		}
	}
	s.result = append(s.result, Transfer{Src: src, Dst: dst})
}

func (s *serializer) save(node *lang.Local) {
	if _, saved := s.remap[node]; !saved {
		t := s.genTemp(node)
		s.remap[node] = t
		s.temps = append(s.temps, t)
	}
}
