package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphanneal/pkg/config"
	"github.com/matzehuels/graphanneal/pkg/energy"
	"github.com/matzehuels/graphanneal/pkg/graph"
	"github.com/matzehuels/graphanneal/pkg/render"
)

// captureOutput redirects command output to a buffer for the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	oldOut, oldErr := output, errOutput
	buf := new(bytes.Buffer)
	output, errOutput = buf, io.Discard
	t.Cleanup(func() { output, errOutput = oldOut, oldErr })
	return buf
}

// execute runs the root command with args.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		explicit, input, suffix string
		want                    string
	}{
		{"", "graph.json", ".layout.json", "graph.layout.json"},
		{"", "dir/g.yaml", ".layout.json", "dir/g.layout.json"},
		{"", "g.layout.json", ".svg", "g.svg"},
		{"", "g.layout.json", "", "g"},
		{"out.json", "graph.json", ".layout.json", "out.json"},
	}

	for _, tt := range tests {
		if got := outputPath(tt.explicit, tt.input, tt.suffix); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.explicit, tt.input, tt.suffix, got, tt.want)
		}
	}
}

func TestRenderPaths(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		formats []render.Format
		want    map[render.Format]string
	}{
		{"single explicit", "out.png", []render.Format{render.FormatPNG}, map[render.Format]string{render.FormatPNG: "out.png"}},
		{"derived", "", []render.Format{render.FormatSVG, render.FormatGraphvizSVG}, map[render.Format]string{
			render.FormatSVG:         "g.svg",
			render.FormatGraphvizSVG: "g.gv.svg",
		}},
		{"base with extension", "art/x.svg", []render.Format{render.FormatSVG, render.FormatDOT}, map[render.Format]string{
			render.FormatSVG: "art/x.svg",
			render.FormatDOT: "art/x.dot",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderPaths(tt.output, "g.layout.json", tt.formats)
			for f, want := range tt.want {
				if got[f] != want {
					t.Errorf("renderPaths()[%s] = %q, want %q", f, got[f], want)
				}
			}
		})
	}
}

func TestConfigFlagsResolve(t *testing.T) {
	def := config.Default()

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg config.Config)
		wantErr bool
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Variant != config.VariantThreshold || cfg.Schedule != def.Schedule || cfg.Seed != def.Seed {
					t.Errorf("resolve() = %+v, want defaults", cfg)
				}
			},
		},
		{
			name: "schedule overrides",
			args: []string{"--seed", "7", "--steps", "10", "--max-temp", "50", "--restarts", "0"},
			check: func(t *testing.T, cfg config.Config) {
				want := config.Schedule{MaxTemp: 50, MinTemp: def.Schedule.MinTemp, Steps: 10}
				if cfg.Seed != 7 || cfg.Restarts != 0 || cfg.Schedule != want {
					t.Errorf("resolve() = %+v, want seed 7, no restarts, schedule %+v", cfg, want)
				}
			},
		},
		{
			name: "variant swaps preset",
			args: []string{"--variant", "exact", "--seed", "3"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Variant != config.VariantExact || cfg.Weights != energy.ExactWeights() || cfg.Seed != 3 {
					t.Errorf("resolve() = %+v, want exact preset with seed 3", cfg)
				}
			},
		},
		{name: "unknown variant", args: []string{"--variant", "fuzzy"}, wantErr: true},
		{name: "zero min temp", args: []string{"--min-temp", "0"}, wantErr: true},
		{name: "min above max", args: []string{"--min-temp", "10", "--max-temp", "1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			var flags configFlags
			flags.register(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			cfg, err := flags.resolve(cmd)
			if tt.wantErr {
				if err == nil {
					t.Fatal("resolve() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLayoutAnalyzeRender(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "graph.json")
	g := graph.Graph{
		Nodes: []graph.Node{{ID: "a", Label: "Alpha"}},
		Edges: []graph.Edge{{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "a", To: "c"}},
	}
	if err := graph.WriteGraphFile(g, input); err != nil {
		t.Fatalf("WriteGraphFile() error = %v", err)
	}

	buf := captureOutput(t)
	if err := execute(t, "layout", input, "--no-cache", "--seed", "1", "--steps", "2000", "--restarts", "10"); err != nil {
		t.Fatalf("layout error = %v", err)
	}
	layoutPath := filepath.Join(dir, "graph.layout.json")
	if !strings.Contains(buf.String(), layoutPath) {
		t.Errorf("layout output = %q, want it to name %s", buf.String(), layoutPath)
	}
	l, err := graph.ReadLayoutFile(layoutPath)
	if err != nil {
		t.Fatalf("ReadLayoutFile() error = %v", err)
	}
	if len(l.Nodes) != 3 || l.Variant != config.VariantThreshold || l.Seed != 1 {
		t.Errorf("layout = %+v, want 3 threshold nodes from seed 1", l)
	}

	buf.Reset()
	if err := execute(t, "analyze", layoutPath, "--json"); err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	var report struct {
		Variant string  `json:"variant"`
		Energy  float64 `json:"energy"`
	}
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("analyze output %q: %v", buf.String(), err)
	}
	if report.Variant != l.Variant || report.Energy != l.Energy {
		t.Errorf("analyze = %+v, want variant %s energy %v", report, l.Variant, l.Energy)
	}

	buf.Reset()
	if err := execute(t, "render", layoutPath, "-f", "svg,dot", "--no-cache"); err != nil {
		t.Fatalf("render error = %v", err)
	}
	for _, name := range []string{"graph.svg", "graph.dot"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.Contains(data, []byte("Alpha")) {
			t.Errorf("%s does not contain the node label", name)
		}
	}
}

func TestLayoutMissingInput(t *testing.T) {
	captureOutput(t)
	if err := execute(t, "layout", filepath.Join(t.TempDir(), "missing.json"), "--no-cache"); err == nil {
		t.Error("layout of a missing file succeeded")
	}
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	captureOutput(t)
	if err := execute(t, "render", "g.layout.json", "-f", "bmp"); err == nil {
		t.Error("render -f bmp succeeded")
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	captureOutput(t)

	if err := execute(t, "config", "init", path, "--variant", "exact"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Variant != config.VariantExact || cfg.Lattice.Step != 1 {
		t.Errorf("Load() = %+v, want the exact preset", cfg)
	}

	if err := execute(t, "config", "init", path); err == nil {
		t.Error("config init overwrote an existing file without --force")
	}
	if err := execute(t, "config", "init", path, "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	buf := captureOutput(t)
	if err := execute(t, "config", "show", "--variant", "exact", "--steps", "42"); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	cfg, err := config.Decode(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.Variant != config.VariantExact || cfg.Schedule.Steps != 42 {
		t.Errorf("config show = %+v, want exact with 42 steps", cfg)
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			buf := captureOutput(t)
			if err := execute(t, "completion", shell); err != nil {
				t.Fatalf("completion %s error = %v", shell, err)
			}
			if !strings.Contains(buf.String(), appName) {
				t.Errorf("completion %s does not mention %s", shell, appName)
			}
		})
	}
	captureOutput(t)
	if err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("completion tcsh succeeded")
	}
}

func TestCompleteVariantFlag(t *testing.T) {
	for _, args := range [][]string{
		{"__complete", "layout", "--variant", ""},
		{"__complete", "analyze", "g.layout.json", "--variant", ""},
		{"__complete", "config", "init", "--variant", ""},
	} {
		buf := captureOutput(t)
		if err := execute(t, args...); err != nil {
			t.Fatalf("%v error = %v", args, err)
		}
		for _, v := range config.Variants {
			if !strings.Contains(buf.String(), v+"\n") {
				t.Errorf("%v completions = %q, missing %s", args, buf.String(), v)
			}
		}
	}
}

func TestCompleteFormats(t *testing.T) {
	tests := []struct {
		toComplete string
		want       []string
	}{
		{"", []string{"svg", "png", "dot", "gv.svg"}},
		{"svg,", []string{"svg,png", "svg,dot", "svg,gv.svg"}},
		{"svg,dot,p", []string{"svg,dot,png", "svg,dot,gv.svg"}},
	}
	for _, tt := range tests {
		got, _ := completeFormats(nil, nil, tt.toComplete)
		if strings.Join(got, " ") != strings.Join(tt.want, " ") {
			t.Errorf("completeFormats(%q) = %v, want %v", tt.toComplete, got, tt.want)
		}
	}
}
