package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CatalogEntry is one row of services.json, with its default_config.json
// merged in and overridden by any agent-level ModuleParams.config (spec
// §4.1, §6 ModuleParams).
type CatalogEntry struct {
	Type      Type
	Code      string
	IsDefault bool
	// Deployment is fixed to "in_process" — the only supported mode. Kept as
	// a field so a future out-of-process deployment doesn't need a catalog
	// schema migration.
	Deployment string
	Config     map[string]any
}

// catalogFile mirrors services.json's on-disk shape.
type catalogFile struct {
	Services []struct {
		Type       string `json:"type"`
		Code       string `json:"code"`
		IsDefault  bool   `json:"is_default"`
		Deployment string `json:"deployment"`
	} `json:"services"`
}

// LoadCatalogFile reads services.json and, for each entry, the sibling
// default_config.json at <dir>/<type>/<code>/default_config.json, merging in
// any override supplied via agentOverrides[type][code]. Validation happens
// once here, at load, not on every subsequent read (Design Notes §9).
func LoadCatalogFile(servicesJSONPath string, agentOverrides map[Type]map[string]map[string]any) ([]CatalogEntry, error) {
	raw, err := os.ReadFile(servicesJSONPath)
	if err != nil {
		return nil, fmt.Errorf("registry: reading %s: %w", servicesJSONPath, err)
	}
	var cf catalogFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("registry: parsing %s: %w", servicesJSONPath, err)
	}

	baseDir := filepath.Dir(servicesJSONPath)
	seenDefault := map[Type]bool{}
	entries := make([]CatalogEntry, 0, len(cf.Services))

	for _, svc := range cf.Services {
		typ := Type(svc.Type)
		if !typ.valid() {
			return nil, fmt.Errorf("registry: %s: unknown module type %q", servicesJSONPath, svc.Type)
		}
		if svc.Code == "" {
			return nil, fmt.Errorf("registry: %s: entry of type %q missing code", servicesJSONPath, svc.Type)
		}
		deployment := svc.Deployment
		if deployment == "" {
			deployment = "in_process"
		}
		if deployment != "in_process" {
			return nil, fmt.Errorf("registry: %s/%s: unsupported deployment %q", typ, svc.Code, deployment)
		}

		cfg, err := loadDefaultConfig(baseDir, typ, svc.Code)
		if err != nil {
			return nil, err
		}
		if over, ok := agentOverrides[typ][svc.Code]; ok {
			for k, v := range over {
				cfg[k] = v
			}
		}

		if svc.IsDefault {
			if seenDefault[typ] {
				return nil, fmt.Errorf("registry: %s: more than one is_default entry for type %q", servicesJSONPath, svc.Type)
			}
			seenDefault[typ] = true
		}

		entries = append(entries, CatalogEntry{
			Type:       typ,
			Code:       svc.Code,
			IsDefault:  svc.IsDefault,
			Deployment: deployment,
			Config:     cfg,
		})
	}

	return entries, nil
}

// loadDefaultConfig reads <type>/<code>/default_config.json, expanding
// ${VAR} references against the process environment first so secrets (API
// keys) never need to sit in the catalog file itself, the same convention
// internal/dotenv's .env loader feeds into this same environment.
func loadDefaultConfig(baseDir string, typ Type, code string) (map[string]any, error) {
	path := filepath.Join(baseDir, string(typ), code, "default_config.json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: reading %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(raw))
	var cfg map[string]any
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("registry: parsing %s: %w", path, err)
	}
	return cfg, nil
}
