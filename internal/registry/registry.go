// Package registry maps logical resource names to remote path segments.
//
// The registry is configuration data, nested as
//
//	<source>:
//	  <family>:
//	    resources:
//	      <name>: <path>
//
// A default registry is embedded in the binary; a YAML file can replace it.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// SourceDUO is the source key for DUO open onderwijsdata.
	SourceDUO = "duo"
	// FamilyRIO is the dataset family holding the RIO exports.
	FamilyRIO = "rio_datasets"
)

//go:embed resources.yaml
var defaultYAML []byte

// Family groups the resources of one dataset family.
type Family struct {
	Resources map[string]string `yaml:"resources"`
}

// Registry is source -> family -> resources.
type Registry map[string]map[string]Family

// UnknownResourceError reports a lookup for a name the registry does not hold.
type UnknownResourceError struct {
	Source string
	Family string
	Name   string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("registry: unknown resource %q in %s/%s", e.Name, e.Source, e.Family)
}

// Default returns the embedded registry.
func Default() (Registry, error) {
	return Parse(defaultYAML)
}

// Load reads a registry from a YAML file.
func Load(path string) (Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	r, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a registry document and rejects empty names or paths.
func Parse(b []byte) (Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("registry: decode yaml: %w", err)
	}
	for src, fams := range r {
		for fam, f := range fams {
			for name, path := range f.Resources {
				if strings.TrimSpace(name) == "" {
					return nil, fmt.Errorf("registry: %s/%s: empty resource name", src, fam)
				}
				if strings.TrimSpace(path) == "" {
					return nil, fmt.Errorf("registry: %s/%s/%s: empty path", src, fam, name)
				}
			}
		}
	}
	return r, nil
}

// Resolve returns the remote path segment registered for name.
func (r Registry) Resolve(source, family, name string) (string, error) {
	p, ok := r[source][family].Resources[name]
	if !ok {
		return "", &UnknownResourceError{Source: source, Family: family, Name: name}
	}
	return p, nil
}

// Names lists the resources of a family in sorted order.
func (r Registry) Names(source, family string) []string {
	res := r[source][family].Resources
	out := make([]string, 0, len(res))
	for name := range res {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
