package model

// AssignRanks derives rank hints from the edge directions.
//
// Nodes without predecessors get rank 1; every other node gets one more than
// its shallowest predecessor, so a node is ranked by the shortest path from
// any source. Ranks therefore grow downward along edges and the analyzer
// penalizes edges that point up.
//
// If the graph contains a cycle, no consistent layering exists and every node
// is set to rank 0 (unconstrained). Existing ranks are always overwritten.
//
// AssignRanks returns false when the graph was cyclic.
//
// # Algorithm
//
// Kahn's topological traversal guarantees that every predecessor has been
// ranked before its successors are visited:
//  1. Queue all nodes with in-degree 0 at rank 1
//  2. Pop a node; offer rank+1 to each successor, keeping the minimum
//  3. Decrement successor in-degrees; enqueue those that reach 0
//  4. If fewer than all nodes were visited, a cycle exists
func AssignRanks(m *Model) bool {
	n := m.NodeCount()
	inDegree := make([]int, n)
	children := make([][]int, n)
	for _, e := range m.edges {
		inDegree[e.B]++
		children[e.A] = append(children[e.A], e.B)
	}

	ranks := make([]int, n)
	queue := make([]int, 0, n)
	for i := range n {
		if inDegree[i] == 0 {
			ranks[i] = 1
			queue = append(queue, i)
		}
	}

	visited := 0
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		visited++

		for _, child := range children[curr] {
			if r := ranks[curr] + 1; ranks[child] == 0 || r < ranks[child] {
				ranks[child] = r
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if visited < n {
		for i := range m.nodes {
			m.nodes[i].Rank = 0
		}
		return false
	}
	for i, r := range ranks {
		m.nodes[i].Rank = r
	}
	return true
}
