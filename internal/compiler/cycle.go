package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/dish/internal/ir"
)

// FeedbackLoop is a set of elements that influence each other through
// rules. Feedback is what makes boolean networks oscillate or settle into
// attractors, so loops are reported as information, not errors.
type FeedbackLoop struct {
	Path    []string `json:"path"`    // loop path: ["a", "b", "a"]
	Message string   `json:"message"` // human-readable description
	Level   string   `json:"level"`   // "info"
}

// AnalyzeFeedbackLoops finds strongly connected components of the element
// influence graph. An edge u → v exists when some rule targeting v reads u.
//
// Components are found with Tarjan's algorithm; each component with more
// than one element, or a single element whose rule reads itself, is
// reported. Output order is deterministic: loops are sorted by the arena
// index of their first element.
func AnalyzeFeedbackLoops(m *ir.Model) []FeedbackLoop {
	if len(m.Elements) == 0 {
		return []FeedbackLoop{}
	}

	graph := buildInfluenceGraph(m)
	sccs := tarjanSCC(graph)

	loops := []FeedbackLoop{}
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			loops = append(loops, sccToLoop(m, scc, graph))
		}
	}
	return loops
}

// influenceGraph is an adjacency list over element indices.
type influenceGraph [][]int

// buildInfluenceGraph adds one edge per distinct (operand, target) pair.
// Adjacency lists are sorted so traversal is independent of rule order.
func buildInfluenceGraph(m *ir.Model) influenceGraph {
	graph := make(influenceGraph, len(m.Elements))
	for _, g := range m.Groups {
		for _, r := range g.Rules {
			if r.Target < 0 {
				continue
			}
			for _, tok := range r.Expr {
				if tok.Kind != ir.TokOperand || tok.Index < 0 {
					continue
				}
				if !slices.Contains(graph[tok.Index], r.Target) {
					graph[tok.Index] = append(graph[tok.Index], r.Target)
				}
			}
		}
	}
	for i := range graph {
		slices.Sort(graph[i])
	}
	return graph
}

func hasSelfLoop(node int, graph influenceGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC returns the strongly connected components of graph. Each
// component is sorted ascending and components are sorted by their first
// member.
func tarjanSCC(graph influenceGraph) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(graph))
		lowlink = make([]int, len(graph))
		onStack = make([]bool, len(graph))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for node := range graph {
		if indices[node] < 0 {
			strongConnect(node)
		}
	}

	slices.SortFunc(sccs, func(a, b []int) int { return a[0] - b[0] })
	return sccs
}

func sccToLoop(m *ir.Model, scc []int, graph influenceGraph) FeedbackLoop {
	if len(scc) == 1 {
		name := m.Elements[scc[0]].Name
		return FeedbackLoop{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-regulating element: %s → %s", name, name),
			Level:   "info",
		}
	}

	path := reconstructLoopPath(scc, graph)
	names := make([]string, len(path))
	for i, idx := range path {
		names[i] = m.Elements[idx].Name
	}
	return FeedbackLoop{
		Path:    names,
		Message: fmt.Sprintf("Feedback loop: %s", strings.Join(names, " → ")),
		Level:   "info",
	}
}

// reconstructLoopPath walks from the first member of scc along edges that
// stay inside the component until it returns to the start. The walk may
// close before visiting every member.
func reconstructLoopPath(scc []int, graph influenceGraph) []int {
	member := make(map[int]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	start := scc[0]
	current := start
	path := []int{current}
	visited := map[int]bool{}

	for {
		visited[current] = true

		next := -1
		for _, w := range graph[current] {
			if member[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next < 0 {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
