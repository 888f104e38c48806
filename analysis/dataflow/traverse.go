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

// ForEachNode visits every node forward-reachable from the graph's roots
// exactly once. The roots are the entry op, the constant slots and the null
// slot; everything a pass should see hangs off those.
func (g *Graph) ForEachNode(visit func(Node)) {
	t := &traversal{visited: map[Node]bool{}, visit: visit}
	t.walk(g.Entry)
	for _, slot := range g.Existing {
		t.walk(slot)
	}
	t.walk(g.Null)
	if g.Exit != nil {
		t.walk(g.Exit)
	}
}

// CollectNodes returns a snapshot of the live node set, safe to iterate
// while the graph is being rewritten.
func (g *Graph) CollectNodes() []Node {
	var nodes []Node
	g.ForEachNode(func(n Node) { nodes = append(nodes, n) })
	return nodes
}

type traversal struct {
	visited map[Node]bool
	visit   func(Node)
}

func (t *traversal) walk(n Node) {
	if n == nil || t.visited[n] {
		return
	}
	t.visited[n] = true
	t.visit(n)
	for _, next := range n.Forward() {
		t.walk(next)
	}
}
