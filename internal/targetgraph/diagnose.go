package targetgraph

import "slices"

// Edge is a dependency edge: From depends on To.
type Edge struct {
	From Label
	To   Label
}

// Diagnostics summarizes graph anomalies that aggregation tolerates.
type Diagnostics struct {
	// Dangling lists edges whose target is not in the graph, in label order.
	Dangling []Edge
	// Cycles lists each strongly connected component with more than one
	// member (or a self-edge). Members are sorted; cycles are ordered by
	// their first member.
	Cycles [][]Label
}

// Diagnose scans the graph for dangling edges and dependency cycles. It uses
// an iterative Tarjan walk so deep chains do not grow the goroutine stack.
func Diagnose(g *Graph) Diagnostics {
	var d Diagnostics
	n := g.Len()
	deps := make([][]int, n)
	for id, t := range g.targets {
		for _, dep := range t.Deps {
			did, ok := g.index[dep]
			if !ok {
				d.Dangling = append(d.Dangling, Edge{From: t.Label, To: dep})
				continue
			}
			deps[id] = append(deps[id], did)
		}
	}

	const unvisited = -1
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}
	var (
		next  int
		stack []int
	)
	type frame struct{ id, edge int }

	for root := 0; root < n; root++ {
		if index[root] != unvisited {
			continue
		}
		call := []frame{{id: root}}
		index[root], low[root] = next, next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(call) > 0 {
			top := &call[len(call)-1]
			v := top.id
			if top.edge < len(deps[v]) {
				w := deps[v][top.edge]
				top.edge++
				switch {
				case index[w] == unvisited:
					index[w], low[w] = next, next
					next++
					stack = append(stack, w)
					onStack[w] = true
					call = append(call, frame{id: w})
				case onStack[w]:
					low[v] = min(low[v], index[w])
				}
				continue
			}

			call = call[:len(call)-1]
			if len(call) > 0 {
				parent := call[len(call)-1].id
				low[parent] = min(low[parent], low[v])
			}
			if low[v] != index[v] {
				continue
			}
			var comp []Label
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, g.targets[w].Label)
				if w == v {
					break
				}
			}
			if len(comp) > 1 || slices.Contains(deps[v], v) {
				slices.SortFunc(comp, Label.Compare)
				d.Cycles = append(d.Cycles, comp)
			}
		}
	}
	slices.SortFunc(d.Cycles, func(a, b []Label) int { return a[0].Compare(b[0]) })
	return d
}
