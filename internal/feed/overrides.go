package feed

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Overrides extends the built-in alias and header tables without a rebuild.
// The servicer renames files and columns from time to time; operators drop a
// YAML file next to the binary instead of waiting for a release.
//
//	eom_trial_balance:
//	  aliases: [tbdata]
//	  headers:
//	    curr_upb: principal_balance
type Overrides map[string]struct {
	Aliases []string          `yaml:"aliases"`
	Headers map[string]string `yaml:"headers"`
}

// LoadOverrides reads a YAML override file and merges it into the kind specs.
// A missing file is not an error; an override naming an unknown kind is.
func LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading feed overrides %s", path)
	}
	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return errors.Wrapf(err, "parsing feed overrides %s", path)
	}
	return ApplyOverrides(ov)
}

// ApplyOverrides merges extra aliases and header mappings into the specs.
func ApplyOverrides(ov Overrides) error {
	for name, o := range ov {
		kind, ok := KindFromName(name)
		if !ok {
			return errors.Errorf("feed override names unknown kind %q", name)
		}
		s := specsByKind[kind]
		s.Aliases = append(s.Aliases, o.Aliases...)
		for header, col := range o.Headers {
			found := false
			for _, c := range s.Columns {
				if c == col {
					found = true
					break
				}
			}
			if !found {
				return errors.Errorf("feed override for %q maps header %q to unknown column %q", name, header, col)
			}
			s.HeaderMap[header] = col
		}
	}
	return nil
}
