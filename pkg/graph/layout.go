package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/matzehuels/graphanneal/pkg/analyze"
	"github.com/matzehuels/graphanneal/pkg/model"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// =============================================================================
// Layout - Finished Run
// =============================================================================

// Layout is the serialization format for a computed layout.
//
// Nodes carry their final positions. The run metadata (variant, seed, energy,
// attributes) is informational: [Layout.ToModel] only reads nodes and edges,
// so a hand-edited layout can be re-analyzed or rendered directly.
type Layout struct {
	RunID      string             `json:"run_id,omitempty"`
	Variant    string             `json:"variant,omitempty"`
	Seed       uint64             `json:"seed"`
	Steps      int                `json:"steps,omitempty"`
	Energy     float64            `json:"energy"`
	Attributes analyze.Attributes `json:"attributes"`
	Nodes      []Node             `json:"nodes"`
	Edges      []Edge             `json:"edges"`
}

// ExportLayout captures the positions of m under a fresh run ID. ids maps
// model indices to node IDs, as returned by [Graph.ToModel].
func ExportLayout(m *model.Model, ids []string) (Layout, error) {
	g, err := FromModel(m, ids, nil)
	if err != nil {
		return Layout{}, err
	}
	return Layout{
		RunID: uuid.NewString(),
		Nodes: g.Nodes,
		Edges: g.Edges,
	}, nil
}

// Graph returns the layout's topology and positions as a graph.
func (l Layout) Graph() Graph {
	return Graph{Nodes: l.Nodes, Edges: l.Edges}
}

// ToModel rebuilds the model with the stored positions.
func (l Layout) ToModel() (*model.Model, []string, error) {
	return l.Graph().ToModel()
}

// SetLabels copies display labels onto the matching nodes.
func (l *Layout) SetLabels(labels map[string]string) {
	for i := range l.Nodes {
		if label, ok := labels[l.Nodes[i].ID]; ok {
			l.Nodes[i].Label = label
		}
	}
}

// Bounds returns the smallest rectangle containing every node.
func (l Layout) Bounds() (minX, minY, maxX, maxY float64) {
	for i, n := range l.Nodes {
		if i == 0 {
			minX, maxX, minY, maxY = n.X, n.X, n.Y, n.Y
			continue
		}
		minX, maxX = min(minX, n.X), max(maxX, n.X)
		minY, maxY = min(minY, n.Y), max(maxY, n.Y)
	}
	return minX, minY, maxX, maxY
}

// Node returns the node with the given ID.
func (l Layout) Node(id string) (Node, bool) {
	for _, n := range l.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout. The layout must
// contain at least one node and a valid topology.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "unmarshal layout")
	}
	if len(l.Nodes) == 0 {
		return Layout{}, errs.New(errs.ErrCodeEmptyGraph, "layout must contain nodes")
	}
	if err := l.Graph().Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Layout{}, errs.New(errs.ErrCodeFileNotFound, "layout file %s not found", path)
		}
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
