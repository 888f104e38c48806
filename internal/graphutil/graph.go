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

package graphutil

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/flow"
)

// DGraph is an abstraction over a directed graph with dense integer node ids,
// built so existing graph libraries can operate on IR-level graphs. It
// implements the methods to satisfy yourbasic's graph.Iterator and gonum's
// graph.Directed.
type DGraph struct {
	// The order of the graph
	order int

	// Keys are all the node IDs, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge from x to y
	Edges map[int64]map[int64]bool

	// Preds is the reverse adjacency matrix
	Preds map[int64]map[int64]bool
}

// NewDGraph returns a directed graph over the node ids 0..order-1 with no
// edges.
func NewDGraph(order int) *DGraph {
	keys := make([]int64, order)
	edges := make(map[int64]map[int64]bool, order)
	preds := make(map[int64]map[int64]bool, order)
	for i := 0; i < order; i++ {
		keys[i] = int64(i)
		edges[int64(i)] = map[int64]bool{}
		preds[int64(i)] = map[int64]bool{}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return &DGraph{
		order: order,
		Keys:  keys,
		Edges: edges,
		Preds: preds,
	}
}

// AddEdge adds a directed edge between two existing node ids.
func (g *DGraph) AddEdge(from, to int64) {
	g.Edges[from][to] = true
	g.Preds[to][from] = true
}

// Subgraph returns a new graph that is the original graph with only the nodes
// in include. Only the edges that have both the origin and destination nodes
// in the include nodes are kept. Node ids stay consistent across subgraphs.
func Subgraph(original *DGraph, include []int64) *DGraph {
	in := make(map[int64]bool, len(include))
	keys := make([]int64, len(include))
	for j, i := range include {
		keys[j] = i
		in[i] = true
	}

	edges := make(map[int64]map[int64]bool, len(include))
	preds := make(map[int64]map[int64]bool, len(include))
	for _, i := range include {
		edges[i] = map[int64]bool{}
		preds[i] = map[int64]bool{}
	}
	for _, i := range include {
		for e := range original.Edges[i] {
			if in[e] {
				edges[i][e] = true
				preds[e][i] = true
			}
		}
	}

	return &DGraph{
		order: original.order,
		Keys:  keys,
		Edges: edges,
		Preds: preds,
	}
}

// Order implements the order of the graph.Iterator interface for the DGraph
func (g *DGraph) Order() int {
	return g.order
}

// Visit implements the yourbasic graph.Iterator interface for the DGraph
func (g *DGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	edges, ok := g.Edges[int64(v)]
	if !ok {
		return false
	}
	for w := range edges {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** gonum graph.Directed implementation **********************

// Node implements the Graph interface
func (g *DGraph) Node(id int64) graph.Node {
	if _, ok := g.Edges[id]; !ok {
		return nil
	}
	return dnode(id)
}

// Nodes returns the set of nodes in the graph
func (g *DGraph) Nodes() graph.Nodes {
	return newNodeSet(g.Keys)
}

// From returns the set of nodes reachable from the id by one edge
func (g *DGraph) From(id int64) graph.Nodes {
	var keys []int64
	for out := range g.Edges[id] {
		keys = append(keys, out)
	}
	return newNodeSet(keys)
}

// To returns the set of nodes reaching the id by one edge
func (g *DGraph) To(id int64) graph.Nodes {
	var keys []int64
	for in := range g.Preds[id] {
		keys = append(keys, in)
	}
	return newNodeSet(keys)
}

// HasEdgeBetween returns whether an edge exists between the two node ids,
// in either direction
func (g *DGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.Edges[xid][yid] || g.Edges[yid][xid]
}

// HasEdgeFromTo returns whether a directed edge exists from uid to vid
func (g *DGraph) HasEdgeFromTo(uid, vid int64) bool {
	return g.Edges[uid][vid]
}

// Edge returns the edge between the two ids (nil if none exists)
func (g *DGraph) Edge(uid, vid int64) graph.Edge {
	if g.Edges[uid][vid] {
		return dedge{from: dnode(uid), to: dnode(vid)}
	}
	return nil
}

// ImmediateDominators computes the dominator tree of the graph rooted at
// root and returns the immediate-dominator map. The root has no entry.
func (g *DGraph) ImmediateDominators(root int64) map[int64]int64 {
	tree := flow.Dominators(dnode(root), g)
	idom := make(map[int64]int64, len(g.Keys))
	for _, id := range g.Keys {
		if id == root {
			continue
		}
		if d := tree.DominatorOf(id); d != nil {
			idom[id] = d.ID()
		}
	}
	return idom
}

// *************** Nodes implementation **********************

// dnode is an integer id implementing the graph.Node interface
type dnode int64

// ID returns the id of the node
func (n dnode) ID() int64 { return int64(n) }

// nodeSet implements the graph.Nodes interface, an iterator over a set of
// node ids
type nodeSet struct {
	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator; -1 before the first Next
	cur int
}

func newNodeSet(ids []int64) graph.Nodes {
	if len(ids) == 0 {
		return graph.Empty
	}
	return &nodeSet{ids: ids, cur: -1}
}

// Next moves the iterator to the next node and returns true if one exists.
func (ns *nodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of remaining nodes in the set
func (ns *nodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset rewinds the iterator
func (ns *nodeSet) Reset() {
	ns.cur = -1
}

// Node returns the current node in the set
func (ns *nodeSet) Node() graph.Node {
	return dnode(ns.ids[ns.cur])
}

// *************** Edge implementation **********************

// dedge implements the graph.Edge interface
type dedge struct {
	from dnode
	to   dnode
}

// From returns the origin of the edge
func (e dedge) From() graph.Node { return e.from }

// To returns the destination of the edge
func (e dedge) To() graph.Node { return e.to }

// ReversedEdge returns a new value representing the reversed edge
func (e dedge) ReversedEdge() graph.Edge { return dedge{from: e.to, to: e.from} }
