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

// phiEdgeNames are the predecessor edge kinds a phi transfer may be pushed
// onto. Assignments cannot be hoisted into fail or error dispatch paths.
var phiEdgeNames = map[EdgeName]bool{
	EdgeNormal: true,
	EdgeTrue:   true,
	EdgeFalse:  true,
	EdgeEntry:  true,
}

// UnsupportedEdgeError reports a phi transfer on a predecessor edge kind the
// expander cannot rewrite.
type UnsupportedEdgeError struct {
	Edge EdgeName
}

func (e *UnsupportedEdgeError) Error() string {
	return fmt.Sprintf("cfg: cannot expand phi transfer across %q edge", e.Edge)
}

// ExpandPhi lowers every phi entry in the graph into explicit assignments.
// For each predecessor edge of a merge, the values that edge contributes are
// serialized into an equivalent sequence of ordinary assignments and spliced
// into a new suite on that edge. Afterwards no merge carries phi entries.
func ExpandPhi(code *Code) error {
	var merges []*Merge
	dfs := NewDFS(nil, func(block Block) {
		if m, ok := block.(*Merge); ok && len(m.Phi) > 0 {
			merges = append(merges, m)
		}
	})
	dfs.Process(code.EntryTerminal)

	for _, m := range merges {
		if err := expandMerge(m); err != nil {
			return err
		}
	}
	return nil
}

func expandMerge(m *Merge) error {
	for i, p := range m.Preds() {
		var transfers []Transfer
		for _, phi := range m.Phi {
			if phi.Arguments[i] != nil {
				transfers = append(transfers, Transfer{Src: phi.Arguments[i], Dst: phi.Target})
			}
		}
		if len(transfers) == 0 {
			continue
		}

		if !phiEdgeNames[p.Name] {
			return &UnsupportedEdgeError{Edge: p.Name}
		}

		ordered, _, err := SerializeTransfers(transfers, func(l *lang.Local) *lang.Local {
			return l.Clone()
		})
		if err != nil {
			return err
		}

		s := NewSuite()
		for _, t := range ordered {
			s.Ops = append(s.Ops, &lang.Assign{Expr: t.Src, Targets: []*lang.Local{t.Dst}})
		}

		p.Block.InsertAtExit(p.Name, s, EdgeNormal)
	}

	m.Phi = nil
	return nil
}
