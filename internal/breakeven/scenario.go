package breakeven

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Scenario is a file of branch assumptions. JSON documents decode too.
type Scenario struct {
	Branches []Branch `yaml:"branches" json:"branches"`
}

// LoadScenarios decodes a scenario document and checks branch names.
// Inputs are not validated here; Compute does that per branch.
func LoadScenarios(r io.Reader) ([]Branch, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if err == io.EOF {
			return nil, eris.New("breakeven: scenario file is empty")
		}
		return nil, eris.Wrap(err, "breakeven: decode scenario")
	}
	if len(sc.Branches) == 0 {
		return nil, eris.New("breakeven: scenario has no branches")
	}

	seen := make(map[string]bool, len(sc.Branches))
	for i := range sc.Branches {
		name := strings.TrimSpace(sc.Branches[i].Name)
		if name == "" {
			return nil, eris.Errorf("breakeven: branch %d has no name", i+1)
		}
		if seen[name] {
			return nil, eris.Errorf("breakeven: duplicate branch %q", name)
		}
		seen[name] = true
		sc.Branches[i].Name = name
	}
	return sc.Branches, nil
}

// LoadScenarioFile reads a YAML or JSON scenario file from disk.
func LoadScenarioFile(path string) ([]Branch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "breakeven: open scenario %s", path)
	}
	defer f.Close() //nolint:errcheck
	return LoadScenarios(f)
}
