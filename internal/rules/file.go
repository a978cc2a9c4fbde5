package rules

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/permit-leads/internal/model"
)

// fileFormat is the on-disk YAML layout of a rule catalog.
type fileFormat struct {
	Rules []model.Rule `yaml:"rules"`
}

// FileSource reads rules from a YAML file. An empty Path yields no rules.
type FileSource struct {
	Path string
}

// Name implements the optional source naming used by Load.
func (f FileSource) Name() string { return SourceFile }

// LoadActiveRules implements Source.
func (f FileSource) LoadActiveRules(_ context.Context) ([]model.Rule, error) {
	if f.Path == "" {
		return nil, nil
	}
	rs, err := ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	active := rs[:0]
	for _, r := range rs {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}

// ReadFile parses a YAML rule catalog.
func ReadFile(path string) ([]model.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}
	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, eris.Wrapf(err, "rules: parse %s", path)
	}
	return ff.Rules, nil
}

// Write encodes rs as a YAML rule catalog.
func Write(w io.Writer, rs []model.Rule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fileFormat{Rules: rs}); err != nil {
		return eris.Wrap(err, "rules: encode yaml")
	}
	return eris.Wrap(enc.Close(), "rules: flush yaml")
}

// Validate compiles every rule in rs and returns the failures keyed by
// rule id. Inactive rules are checked too.
func Validate(rs []model.Rule) map[int64]error {
	failures := make(map[int64]error)
	for _, r := range rs {
		if _, err := Compile(r); err != nil {
			failures[r.ID] = err
		}
	}
	return failures
}
