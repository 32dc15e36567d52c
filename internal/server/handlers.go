package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/matzehuels/graphanneal/pkg/analyze"
	"github.com/matzehuels/graphanneal/pkg/buildinfo"
	"github.com/matzehuels/graphanneal/pkg/config"
	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/observability"
	"github.com/matzehuels/graphanneal/pkg/pipeline"
	"github.com/matzehuels/graphanneal/pkg/render"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// LayoutRequest is the body of POST /v1/layout.
type LayoutRequest struct {
	Graph    graph.Graph     `json:"graph"`
	Config   json.RawMessage `json:"config,omitempty"`
	AutoRank *bool           `json:"auto_rank,omitempty"` // default true
	Refresh  bool            `json:"refresh,omitempty"`

	// Formats requests rendered artifacts along with the layout. PNG is
	// returned base64 encoded, everything else as text.
	Formats    []string `json:"formats,omitempty"`
	Size       int      `json:"size,omitempty"`
	HideLabels bool     `json:"hide_labels,omitempty"`
}

// LayoutResponse is the body returned by POST /v1/layout.
type LayoutResponse struct {
	Layout    graph.Layout      `json:"layout"`
	GraphHash string            `json:"graph_hash"`
	CacheHit  bool              `json:"cache_hit"`
	Partial   bool              `json:"partial,omitempty"` // run stopped by the server timeout
	Run       *RunStats         `json:"run,omitempty"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

// RunStats summarizes a fresh annealing run.
type RunStats struct {
	Steps         int     `json:"steps"`
	Accepted      int     `json:"accepted"`
	Rejected      int     `json:"rejected"`
	Improvements  int     `json:"improvements"`
	InitialEnergy float64 `json:"initial_energy"`
	EarlyExit     bool    `json:"early_exit"`
	DurationMS    int64   `json:"duration_ms"`
}

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	Layout graph.Layout    `json:"layout"`
	Config json.RawMessage `json:"config,omitempty"`
}

// AnalyzeResponse is the body returned by POST /v1/analyze.
type AnalyzeResponse struct {
	Attributes analyze.Attributes `json:"attributes"`
	Energy     float64            `json:"energy"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Get()})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg, err := config.DecodeJSON(req.Config)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n := len(req.Graph.IDs()); n > s.maxNodes {
		s.fail(w, r, errs.New(errs.ErrCodeCapacityExceeded, "graph has %d nodes, limit is %d", n, s.maxNodes))
		return
	}
	var formats []render.Format
	if len(req.Formats) > 0 {
		formats, err = render.ParseFormats(strings.Join(req.Formats, ","))
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.runner.Layout(ctx, pipeline.LayoutRequest{
		Graph:    req.Graph,
		Config:   cfg,
		AutoRank: req.AutoRank == nil || *req.AutoRank,
		Refresh:  req.Refresh,
	})
	partial := err != nil && res != nil && errors.Is(err, context.DeadlineExceeded)
	if err != nil && !partial {
		s.fail(w, r, err)
		return
	}

	resp := LayoutResponse{
		Layout:    res.Layout,
		GraphHash: res.GraphHash,
		CacheHit:  res.CacheHit,
		Partial:   partial,
	}
	if !res.CacheHit {
		resp.Run = &RunStats{
			Steps:         res.Run.Steps,
			Accepted:      res.Run.Accepted,
			Rejected:      res.Run.Rejected,
			Improvements:  res.Run.Improvements,
			InitialEnergy: res.Run.InitialEnergy,
			EarlyExit:     res.Run.EarlyExit,
			DurationMS:    res.Run.Duration.Milliseconds(),
		}
	}

	if len(formats) > 0 {
		renderCtx := ctx
		if partial {
			renderCtx = r.Context()
		}
		artifacts, _, err := s.runner.Render(renderCtx, res.Layout, formats, render.Options{Size: req.Size, HideLabels: req.HideLabels})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		resp.Artifacts = make(map[string]string, len(artifacts))
		for f, data := range artifacts {
			if f == render.FormatPNG {
				resp.Artifacts[string(f)] = base64.StdEncoding.EncodeToString(data)
				continue
			}
			resp.Artifacts[string(f)] = string(data)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg, err := config.DecodeJSON(req.Config)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	attrs, e, err := s.runner.Analyze(req.Layout, cfg.Evaluator())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{Attributes: attrs, Energy: e})
}

// decode reads a JSON body, rejecting unknown fields. It writes the error
// response itself and reports whether decoding succeeded.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, errs.New(errs.ErrCodeCapacityExceeded, "request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		s.fail(w, r, errs.New(errs.ErrCodeInvalidFormat, "decode request: %v", err))
		return false
	}
	return true
}

// fail writes err as a JSON error with a status derived from its code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Error: errs.UserMessage(err), Code: string(errs.GetCode(err))})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errs.Is(err, errs.ErrCodeCapacityExceeded):
		return http.StatusRequestEntityTooLarge
	case errs.IsValidation(err), errs.Is(err, errs.ErrCodeUnsupported):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
