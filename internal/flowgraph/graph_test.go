package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestAddNode_Idempotent(t *testing.T) {
	g := New()
	g.AddNode("a")
	require.NoError(t, g.AddEdge("a", "a"))
	g.AddNode("a")

	succs, err := g.Successors("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, succs, "re-adding a node keeps its edges")
}

func TestAddEdge(t *testing.T) {
	g := build(t, []string{"a", "b"}, [][2]string{{"a", "b"}, {"a", "b"}})

	succs, err := g.Successors("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, succs)

	assert.Error(t, g.AddEdge("missing", "a"))
	assert.Error(t, g.AddEdge("a", "missing"))
	_, err = g.Successors("missing")
	assert.Error(t, err)
}

func TestWalk(t *testing.T) {
	g := build(t,
		[]string{"f1", "f2", "f3", "r", "q"},
		[][2]string{{"f1", "f2"}, {"f1", "q"}, {"f2", "f3"}, {"f3", "r"}},
	)
	notQueue := func(id string) bool { return id != "q" }

	assert.Equal(t, []string{"f1", "f2", "f3", "r"}, g.Walk("f1", notQueue))
	assert.Nil(t, g.Walk("missing", notQueue))
}

func TestWalk_TerminatesOnCycles(t *testing.T) {
	g := build(t,
		[]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"b", "b"}},
	)
	all := func(string) bool { return true }
	assert.Equal(t, []string{"a", "b", "c"}, g.Walk("a", all))
}
