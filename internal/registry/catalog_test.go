package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	servicesPath := filepath.Join(dir, "services.json")
	writeFile(t, servicesPath, `{
		"services": [
			{"type": "asr", "code": "azure", "is_default": true},
			{"type": "tts", "code": "cartesia"}
		]
	}`)
	writeFile(t, filepath.Join(dir, "asr", "azure", "default_config.json"), `{"region": "eastus", "sample_rate": 16000}`)

	entries, err := LoadCatalogFile(servicesPath, nil)
	if err != nil {
		t.Fatalf("LoadCatalogFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	asr := entries[0]
	if asr.Type != TypeASR || asr.Code != "azure" || !asr.IsDefault {
		t.Errorf("asr entry = %+v", asr)
	}
	if asr.Deployment != "in_process" {
		t.Errorf("Deployment = %q, want in_process", asr.Deployment)
	}
	if asr.Config["region"] != "eastus" {
		t.Errorf("Config[region] = %v, want eastus", asr.Config["region"])
	}

	tts := entries[1]
	if len(tts.Config) != 0 {
		t.Errorf("tts Config = %v, want empty (no default_config.json present)", tts.Config)
	}
}

func TestLoadCatalogFile_AgentOverrideWins(t *testing.T) {
	dir := t.TempDir()
	servicesPath := filepath.Join(dir, "services.json")
	writeFile(t, servicesPath, `{"services": [{"type": "llm", "code": "openai", "is_default": true}]}`)
	writeFile(t, filepath.Join(dir, "llm", "openai", "default_config.json"), `{"temperature": 0.7}`)

	overrides := map[Type]map[string]map[string]any{
		TypeLLM: {"openai": {"temperature": 0.2}},
	}

	entries, err := LoadCatalogFile(servicesPath, overrides)
	if err != nil {
		t.Fatalf("LoadCatalogFile: %v", err)
	}
	if entries[0].Config["temperature"] != 0.2 {
		t.Errorf("Config[temperature] = %v, want 0.2 (override should win)", entries[0].Config["temperature"])
	}
}

func TestLoadCatalogFile_UnknownTypeRejected(t *testing.T) {
	dir := t.TempDir()
	servicesPath := filepath.Join(dir, "services.json")
	writeFile(t, servicesPath, `{"services": [{"type": "weather", "code": "x"}]}`)

	if _, err := LoadCatalogFile(servicesPath, nil); err == nil {
		t.Error("expected error for unknown module type")
	}
}

func TestLoadCatalogFile_UnsupportedDeploymentRejected(t *testing.T) {
	dir := t.TempDir()
	servicesPath := filepath.Join(dir, "services.json")
	writeFile(t, servicesPath, `{"services": [{"type": "tts", "code": "x", "deployment": "sidecar"}]}`)

	if _, err := LoadCatalogFile(servicesPath, nil); err == nil {
		t.Error("expected error for unsupported deployment mode")
	}
}
