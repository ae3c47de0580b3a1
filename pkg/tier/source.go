package tier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Source defines where tier definitions come from.
type Source interface {
	Load(ctx context.Context) ([]Definition, error)
}

// Load reads definitions from src and builds a validated catalog.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	defs, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}
	return NewCatalog(defs...)
}

type inMemSource struct {
	defs []Definition
}

// NewInMemSource returns a Source serving a deep copy of defs.
func NewInMemSource(defs ...Definition) Source {
	return &inMemSource{defs: cloneDefinitions(defs)}
}

func (s *inMemSource) Load(context.Context) ([]Definition, error) {
	return cloneDefinitions(s.defs), nil
}

// catalogFile is the on-disk layout:
//
//	tiers:
//	  - name: free
//	    features: [basic_ask]
//	    limits:
//	      ask_questions: 10
type catalogFile struct {
	Tiers []Definition `yaml:"tiers"`
}

type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source reading the catalog from a YAML file.
// The file is read on every Load call.
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

func (s *yamlSource) Load(context.Context) ([]Definition, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", s.path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes catalog definitions from YAML. Unknown keys are rejected.
func ParseYAML(data []byte) ([]Definition, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return file.Tiers, nil
}

func cloneDefinitions(defs []Definition) []Definition {
	out := make([]Definition, len(defs))
	for i, d := range defs {
		out[i] = Definition{
			Name:        d.Name,
			DisplayName: d.DisplayName,
			Features:    slices.Clone(d.Features),
			Limits:      maps.Clone(d.Limits),
		}
	}
	return out
}
