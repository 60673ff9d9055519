package render

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"sst-backend/document/model"
)

// Catalog holds the controlled-document header defaults per profile.
type Catalog struct {
	Organization string                      `yaml:"organization"`
	Logo         string                      `yaml:"logo"`
	Profiles     map[model.Kind]model.Header `yaml:"profiles"`

	logo []byte
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Profiles: map[model.Kind]model.Header{
			model.KindMinutes: {Title: "Meeting minutes", Code: "SST-FO-001", Version: "1"},
			model.KindGeneric: {Title: "Report", Code: "SST-FO-002", Version: "1"},
		},
	}
}

// LoadCatalog reads a YAML catalog. An empty path returns DefaultCatalog. A relative
// logo path is resolved against the catalog file's directory.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw, filepath.Dir(path))
}

// ParseCatalog decodes catalog YAML; baseDir anchors a relative logo path.
func ParseCatalog(raw []byte, baseDir string) (*Catalog, error) {
	cat := DefaultCatalog()
	var parsed Catalog
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	cat.Organization = parsed.Organization
	cat.Logo = parsed.Logo
	for name, h := range parsed.Profiles {
		kind, err := model.ParseKind(string(name))
		if err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		model.ApplyHeaderDefaults(&h, cat.Profiles[kind])
		cat.Profiles[kind] = h
	}
	if cat.Logo != "" {
		path := cat.Logo
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog logo: %w", err)
		}
		if imageType(data) == "" {
			return nil, fmt.Errorf("catalog logo %s: unsupported image format", cat.Logo)
		}
		cat.logo = data
	}
	return cat, nil
}

// Header returns the defaults for kind with the catalog organization and logo applied.
func (c *Catalog) Header(kind model.Kind) model.Header {
	h := c.Profiles[kind]
	if h.Organization == "" {
		h.Organization = c.Organization
	}
	if len(h.Logo) == 0 {
		h.Logo = c.logo
	}
	return h
}
