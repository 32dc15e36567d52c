// Package config loads annealing settings from TOML files.
//
// A configuration starts from a named variant that fixes the analysis policy,
// the energy weights and the move lattice together:
//
//   - "threshold": distance thresholds, [energy.DefaultWeights], half-unit lattice
//   - "exact": exact coincidence and containment, [energy.ExactWeights], integer lattice
//
// Any key present in the file then overrides the variant's value, so a file
// may be as short as a single line:
//
//	variant = "exact"
//
// Unknown keys are rejected to catch typos early.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/graphanneal/pkg/analyze"
	"github.com/matzehuels/graphanneal/pkg/anneal"
	"github.com/matzehuels/graphanneal/pkg/energy"

	errs "github.com/matzehuels/graphanneal/pkg/errors"
)

// Variant names.
const (
	VariantThreshold = "threshold"
	VariantExact     = "exact"
)

// FileName is the configuration file looked up in the working directory when
// no path is given.
const FileName = "graphanneal.toml"

// Variants lists the accepted variant names.
var Variants = []string{VariantThreshold, VariantExact}

// Schedule is the cooling schedule.
type Schedule struct {
	MaxTemp float64 `toml:"max_temp" json:"max_temp"`
	MinTemp float64 `toml:"min_temp" json:"min_temp"`
	Steps   int     `toml:"steps" json:"steps"`
}

// Config holds every setting of a layout run.
type Config struct {
	Variant  string         `toml:"variant" json:"variant"`
	Seed     uint64         `toml:"seed" json:"seed"`
	Restarts int            `toml:"restarts" json:"restarts"`
	Schedule Schedule       `toml:"schedule" json:"schedule"`
	Weights  energy.Weights `toml:"weights" json:"weights"`
	Policy   analyze.Policy `toml:"policy" json:"policy"`
	Lattice  anneal.Lattice `toml:"lattice" json:"lattice"`
}

// Default returns the threshold variant with the standard schedule.
func Default() Config {
	cfg, _ := ForVariant(VariantThreshold)
	return cfg
}

// ForVariant returns the configuration preset for name. An empty name selects
// the threshold variant.
func ForVariant(name string) (Config, error) {
	cfg := Config{
		Variant:  VariantThreshold,
		Restarts: anneal.DefaultRestarts,
		Schedule: Schedule{
			MaxTemp: anneal.DefaultMaxTemp,
			MinTemp: anneal.DefaultMinTemp,
			Steps:   anneal.DefaultSteps,
		},
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", VariantThreshold:
		cfg.Weights = energy.DefaultWeights()
		cfg.Policy = analyze.ThresholdPolicy()
		cfg.Lattice = anneal.ThresholdLattice()
	case VariantExact:
		cfg.Variant = VariantExact
		cfg.Weights = energy.ExactWeights()
		cfg.Policy = analyze.ExactPolicy()
		cfg.Lattice = anneal.ExactLattice()
	default:
		return Config{}, errs.New(errs.ErrCodeInvalidConfig, "unknown variant %q (want one of %s)", name, strings.Join(Variants, ", "))
	}
	return cfg, nil
}

// Load reads and validates the configuration at path.
func Load(path string) (Config, error) {
	if err := errs.ValidatePath(path); err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errs.New(errs.ErrCodeFileNotFound, "config file %s not found", path)
		}
		return Config{}, errs.Wrap(errs.ErrCodeInvalidPath, err, "read config %s", path)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when set, otherwise [FileName] from the working
// directory if it exists, otherwise [Default].
func LoadOrDefault(path string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(FileName); err == nil {
		return Load(FileName)
	}
	return Default(), nil
}

// Decode parses TOML from r on top of the preset named by its variant key
// and validates the result.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "read config")
	}

	var head struct {
		Variant string `toml:"variant"`
	}
	if _, err := toml.Decode(string(data), &head); err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "parse config")
	}
	cfg, err := ForVariant(head.Variant)
	if err != nil {
		return Config{}, err
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errs.New(errs.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	cfg.Variant = strings.ToLower(strings.TrimSpace(cfg.Variant))
	if cfg.Variant == "" {
		cfg.Variant = VariantThreshold
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeJSON is the JSON counterpart of [Decode], used for configuration
// sent over HTTP. Empty input yields [Default].
func DecodeJSON(data []byte) (Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Default(), nil
	}
	var head struct {
		Variant string `json:"variant"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "parse config")
	}
	cfg, err := ForVariant(head.Variant)
	if err != nil {
		return Config{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "decode config")
	}
	return finish(cfg)
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "encode config")
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := ForVariant(c.Variant); err != nil {
		return err
	}
	if err := c.AnnealOptions().Validate(); err != nil {
		return err
	}
	return c.Evaluator().Validate()
}

// Evaluator returns the scoring policy and weights.
func (c Config) Evaluator() energy.Evaluator {
	return energy.Evaluator{Policy: c.Policy, Weights: c.Weights}
}

// AnnealOptions returns the search options. Logger and Source are left unset.
func (c Config) AnnealOptions() anneal.Options {
	return anneal.Options{
		MaxTemp:  c.Schedule.MaxTemp,
		MinTemp:  c.Schedule.MinTemp,
		Steps:    c.Schedule.Steps,
		Seed:     c.Seed,
		Restarts: c.Restarts,
		Lattice:  c.Lattice,
	}
}
