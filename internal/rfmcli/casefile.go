// ============================================================================
// rfm CLI - Case File Loading
// ============================================================================
//
// Package: internal/rfmcli
// File: casefile.go
// Purpose: Parses a JSON case-list file into rfm.Case values backed by
//          simpipeline.Pipeline, standing in for the test-discovery layer
//          that is out of scope for this engine: reads a JSON array from a
//          file and feeds each element into the system one at a time.
//
// ============================================================================

package rfmcli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/regtest/rfmrun/internal/simpipeline"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// caseSpec is the on-disk shape of one case.
type caseSpec struct {
	Check        string    `json:"check"`
	Partition    string    `json:"partition"`
	Environment  string    `json:"environment"`
	Deps         []depSpec `json:"deps"`
	Kind         string    `json:"kind"`
	Local        bool      `json:"local"`
	BuildLocally bool      `json:"build_locally"`

	JitterMaxMs      int    `json:"jitter_max_ms"`
	RandomFailChance int    `json:"random_fail_chance"`
	FailAt           string `json:"fail_at"`
	SkipReason       string `json:"skip_reason"`

	CompilePolls int  `json:"compile_polls"`
	RunPolls     int  `json:"run_polls"`
	CompileFails bool `json:"compile_fails"`
	RunFails     bool `json:"run_fails"`
}

type depSpec struct {
	Check       string `json:"check"`
	Partition   string `json:"partition"`
	Environment string `json:"environment"`
}

// LoadCases reads a JSON array of case specs from path and builds the
// corresponding rfm.Case values, each driven by a simpipeline.Pipeline.
func LoadCases(path string) ([]rfm.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rfmcli: read case file %s: %w", path, err)
	}

	var specs []caseSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("rfmcli: parse case file %s: %w", path, err)
	}

	cases := make([]rfm.Case, 0, len(specs))
	for _, s := range specs {
		c, err := s.toCase()
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func (s caseSpec) toCase() (rfm.Case, error) {
	kind, err := parseKind(s.Kind)
	if err != nil {
		return rfm.Case{}, err
	}

	deps := make([]rfm.CaseKey, 0, len(s.Deps))
	for _, d := range s.Deps {
		deps = append(deps, rfm.CaseKey{Check: d.Check, Partition: d.Partition, Environment: d.Environment})
	}

	cfg := simpipeline.Config{
		Kind:             kind,
		Local:            s.Local,
		BuildLocally:     s.BuildLocally,
		Partition:        s.Partition,
		JitterMax:        time.Duration(s.JitterMaxMs) * time.Millisecond,
		RandomFailChance: s.RandomFailChance,
		SkipReason:       s.SkipReason,
		CompilePolls:     s.CompilePolls,
		RunPolls:         s.RunPolls,
		CompileFails:     s.CompileFails,
		RunFails:         s.RunFails,
	}
	if s.FailAt != "" {
		cfg.FailAt = rfm.Phase(s.FailAt)
		cfg.FailErr = fmt.Errorf("rfmcli: configured failure at phase %s", s.FailAt)
	}

	return rfm.Case{
		Check:       s.Check,
		Partition:   s.Partition,
		Environment: s.Environment,
		Deps:        deps,
		Pipeline:    simpipeline.New(cfg, nil),
	}, nil
}

func parseKind(s string) (rfm.Kind, error) {
	switch s {
	case "", "full":
		return rfm.KindFull, nil
	case "compile_only":
		return rfm.KindCompileOnly, nil
	case "run_only":
		return rfm.KindRunOnly, nil
	default:
		return 0, fmt.Errorf("rfmcli: unknown case kind %q", s)
	}
}
