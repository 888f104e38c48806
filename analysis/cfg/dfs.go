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

// DFS walks a CFG depth first, visiting each reachable block once. Pre runs
// before a block's successors are explored, Post after. Either callback may
// be nil. Successors are explored in the block's declared exit-name order so
// traversal is deterministic.
type DFS struct {
	Pre  func(Block)
	Post func(Block)

	Processed map[Block]bool
}

// NewDFS returns a traversal with the given callbacks.
func NewDFS(pre, post func(Block)) *DFS {
	return &DFS{Pre: pre, Post: post, Processed: map[Block]bool{}}
}

// Process visits block and everything reachable from it.
func (d *DFS) Process(block Block) {
	if d.Processed[block] {
		return
	}
	d.Processed[block] = true

	if d.Pre != nil {
		d.Pre(block)
	}

	// Snapshot the successors: callbacks may rewrite edges mid-walk.
	core := block.base()
	var children []Block
	for _, name := range core.exitNames {
		if next, ok := core.next[name]; ok {
			children = append(children, next)
		}
	}
	for _, child := range children {
		d.Process(child)
	}

	if d.Post != nil {
		d.Post(block)
	}
}
