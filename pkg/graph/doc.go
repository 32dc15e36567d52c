// Package graph provides the file formats for graphs and computed layouts.
//
// This package defines the wire format used for input files, API requests and
// responses, and cached results. It sits at the boundary between external
// data keyed by string IDs and the index-based [model.Model] used by the
// layout kernel.
//
// # Graph Files
//
// Graphs use a simple node-link format, as JSON or YAML:
//
//	{
//	  "nodes": [{"id": "app", "rank": 1}],
//	  "edges": [{"from": "app", "to": "lib"}]
//	}
//
// Nodes may be omitted entirely: every edge endpoint becomes a node. Edge-list
// files hold one "from to" (or "from -> to") pair per line with "#" comments:
//
//	# app depends on lib
//	app lib
//
// [Graph.ToModel] orders nodes by sorted ID, so index i of the model always
// refers to the i-th smallest ID regardless of file order.
//
// # Layout Files
//
// A [Layout] records a finished run: the positions of every node, the edges,
// the achieved energy and attribute vector, and the settings that produced
// it. Layouts are always JSON.
//
//	g, _ := graph.ReadGraphFile("deps.yaml")
//	m, ids, _ := g.ToModel()
//	// ... anneal m ...
//	l, _ := graph.ExportLayout(m, ids)
//	graph.WriteLayoutFile(l, "deps.layout.json")
//
// # Concurrency
//
// All functions are safe for concurrent use on distinct values.
package graph
