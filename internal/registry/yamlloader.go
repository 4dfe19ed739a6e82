package registry

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ListsFile is the top-level structure of a reference-lists YAML file used to
// layer report- or event-specific names over the bundled data.
//
// Example:
//
//	lists:
//	  units:
//	    - "Court of the Archon"
//	  unit_aliases:
//	    court: "Court of the Archon"
//	  denied:
//	    - "Power From Pain"
type ListsFile struct {
	Lists Lists `yaml:"lists"`
}

// LoadListsFile reads and parses a reference-lists YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func LoadListsFile(path string) (*Lists, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("registry: open lists file %q: %w", path, err)
	}
	defer f.Close()

	l, err := LoadListsFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("registry: parse lists file %q: %w", path, err)
	}
	return l, nil
}

// LoadListsFromReader parses reference-lists YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadListsFromReader(r io.Reader) (*Lists, error) {
	var lf ListsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&lf); err != nil {
		return nil, fmt.Errorf("registry: decode lists yaml: %w", err)
	}
	return &lf.Lists, nil
}
