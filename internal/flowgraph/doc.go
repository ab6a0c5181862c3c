// Package flowgraph indexes the directed block graph so the compiler can ask
// reachability questions. Node and edge order follows insertion order, which
// keeps every traversal deterministic.
package flowgraph
