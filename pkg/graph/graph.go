package graph

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// Format identifies a graph file encoding.
type Format string

// Supported graph formats.
const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatEdgeList Format = "edges"
)

// FormatFromPath picks the format from the file extension. Unknown
// extensions are read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".txt", ".edges", ".el":
		return FormatEdgeList
	default:
		return FormatJSON
	}
}

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph encodes g in the given format. Edge lists drop node
// attributes and isolated nodes.
func MarshalGraph(g Graph, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, format, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph encodes g to w.
func WriteGraph(g Graph, format Format, w io.Writer) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	case FormatEdgeList:
		for _, e := range g.Edges {
			if _, err := fmt.Fprintf(w, "%s %s\n", e.From, e.To); err != nil {
				return err
			}
		}
	default:
		return errs.New(errs.ErrCodeUnsupported, "unsupported graph format %q", format)
	}
	return nil
}

// WriteGraphFile writes g to path in the format implied by its extension.
func WriteGraphFile(g Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, FormatFromPath(path), f)
}

// ReadGraphFile reads the graph at path in the format implied by its
// extension.
func ReadGraphFile(path string) (Graph, error) {
	if err := errs.ValidatePath(path); err != nil {
		return Graph{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Graph{}, errs.New(errs.ErrCodeFileNotFound, "graph file %s not found", path)
		}
		return Graph{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	g, err := ReadGraph(f, FormatFromPath(path))
	if err != nil {
		return Graph{}, fmt.Errorf("read %s: %w", path, err)
	}
	return g, nil
}

// ReadGraph decodes a graph from r and validates it.
func ReadGraph(r io.Reader, format Format) (Graph, error) {
	var (
		g   Graph
		err error
	)
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&g)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&g)
		if err == io.EOF {
			err = nil
		}
	case FormatEdgeList:
		g, err = readEdgeList(r)
		if err != nil {
			return Graph{}, err
		}
	default:
		return Graph{}, errs.New(errs.ErrCodeUnsupported, "unsupported graph format %q", format)
	}
	if err != nil {
		return Graph{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode %s graph", format)
	}
	if err := g.Validate(); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// UnmarshalGraph decodes JSON bytes into a Graph.
func UnmarshalGraph(data []byte) (Graph, error) {
	return ReadGraph(bytes.NewReader(data), FormatJSON)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func readEdgeList(r io.Reader) (Graph, error) {
	var g Graph
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		switch len(fields) {
		case 0:
			continue
		case 2:
			g.Edges = append(g.Edges, Edge{From: fields[0], To: fields[1]})
		case 3:
			if fields[1] != "->" {
				return Graph{}, errs.New(errs.ErrCodeInvalidFormat, "line %d: want \"from to\" or \"from -> to\", got %q", line, strings.TrimSpace(text))
			}
			g.Edges = append(g.Edges, Edge{From: fields[0], To: fields[2]})
		default:
			return Graph{}, errs.New(errs.ErrCodeInvalidFormat, "line %d: want \"from to\" or \"from -> to\", got %q", line, strings.TrimSpace(text))
		}
	}
	if err := sc.Err(); err != nil {
		return Graph{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "scan edge list")
	}
	return g, nil
}
