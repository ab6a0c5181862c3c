package flowgraph

import (
	"fmt"
	"sync"
)

type node struct {
	id    string
	succs []string
	seen  map[string]bool
}

// Graph is a directed graph keyed by block id. Self edges and cycles are
// allowed; traversals guard against revisiting.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a node. Adding an existing id does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{id: id, seen: make(map[string]bool)}
}

// AddEdge adds a directed edge. Duplicate edges are collapsed.
func (g *Graph) AddEdge(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	if _, ok := g.nodes[toID]; !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	if from.seen[toID] {
		return nil
	}
	from.seen[toID] = true
	from.succs = append(from.succs, toID)
	return nil
}

// Successors returns the ids the node points at.
func (g *Graph) Successors(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return append([]string(nil), n.succs...), nil
}

// Walk visits nodes breadth first from start and returns them in visit
// order. A successor is enqueued only when follow accepts it. Every node is
// visited at most once, so cycles terminate.
func (g *Graph) Walk(start string, follow func(id string) bool) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if _, ok := g.nodes[start]; !ok {
		return nil
	}
	visited := map[string]bool{start: true}
	queue := []string{start}
	var out []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		out = append(out, current)
		for _, next := range g.nodes[current].succs {
			if visited[next] || !follow(next) {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return out
}
