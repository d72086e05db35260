package registry

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anvil-platform/forge/internal/module"
)

// Document is the YAML layout of a catalog or installed-state file:
//
//	game_versions: ["1.12.5"]
//	modules:
//	  - identifier: ModA
//	    version: 1.0.0
//	    depends: [{name: Engine}]
//	installed:
//	  - identifier: ModB
//	    version: 0.9.0
//
// An installed entry that matches a catalog entry by identifier and version
// shares the catalog's metadata.
type Document struct {
	GameVersions []string          `yaml:"game_versions,omitempty"`
	Modules      []module.Manifest `yaml:"modules,omitempty"`
	Installed    []module.Manifest `yaml:"installed,omitempty"`
}

// Decode reads one YAML document. Unknown fields are rejected.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return Document{}, fmt.Errorf("registry: decode: %w", err)
	}
	return doc, nil
}

func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("registry: read %s: %w", path, err)
	}
	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadFiles merges every document at paths and builds a snapshot from the result.
func LoadFiles(paths ...string) (*Memory, Document, error) {
	var merged Document
	for _, path := range paths {
		if path == "" {
			continue
		}
		doc, err := LoadDocument(path)
		if err != nil {
			return nil, Document{}, err
		}
		merged.GameVersions = append(merged.GameVersions, doc.GameVersions...)
		merged.Modules = append(merged.Modules, doc.Modules...)
		merged.Installed = append(merged.Installed, doc.Installed...)
	}
	reg, err := merged.Registry()
	if err != nil {
		return nil, Document{}, err
	}
	return reg, merged, nil
}

// Registry builds a snapshot from the document.
func (d Document) Registry() (*Memory, error) {
	catalog, err := buildAll(d.Modules)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*module.Module, len(catalog))
	for _, m := range catalog {
		byKey[m.String()] = m
	}

	installed := make([]*module.Module, 0, len(d.Installed))
	for _, manifest := range d.Installed {
		m, err := manifest.Build()
		if err != nil {
			return nil, err
		}
		if shared, ok := byKey[m.String()]; ok {
			m = shared
		}
		installed = append(installed, m)
	}
	return New(catalog, installed)
}

// Encode writes the document as YAML.
func (d Document) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}
	return enc.Close()
}

// ManifestOf converts m back to its serialized form.
func ManifestOf(m *module.Module) module.Manifest {
	out := module.Manifest{
		Identifier: m.Identifier,
		Version:    m.Version.String(),
		Abstract:   m.Abstract,
		Provides:   m.Provides,
		Depends:    m.Depends,
		Recommends: m.Recommends,
		Suggests:   m.Suggests,
		Supports:   m.Supports,
		Conflicts:  m.Conflicts,
	}
	if m.Name != m.Identifier {
		out.Name = m.Name
	}
	if !m.GameVersionMin.IsZero() {
		out.GameVersionMin = m.GameVersionMin.String()
	}
	if !m.GameVersionMax.IsZero() {
		out.GameVersionMax = m.GameVersionMax.String()
	}
	if m.Metapackage {
		out.Kind = "metapackage"
	}
	return out
}

func buildAll(manifests []module.Manifest) ([]*module.Module, error) {
	out := make([]*module.Module, 0, len(manifests))
	for _, manifest := range manifests {
		m, err := manifest.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
