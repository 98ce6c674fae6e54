package config

import (
	"path/filepath"
	"testing"
)

// memBackend is an in-memory test double for the Backend interface.
type memBackend struct {
	data map[string]any
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string]any)}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (m *memBackend) SetString(key, val string) error { m.data[key] = val; return nil }
func (m *memBackend) SetInt(key string, val int) error { m.data[key] = val; return nil }
func (m *memBackend) Delete(key string) error          { delete(m.data, key); return nil }

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Server.APIToken != "" {
		t.Errorf("Server.APIToken = %q, want empty", cfg.Server.APIToken)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Recommend.DefaultK != 8 {
		t.Errorf("Recommend.DefaultK = %d, want 8", cfg.Recommend.DefaultK)
	}
	if cfg.Recommend.MaxK != 50 {
		t.Errorf("Recommend.MaxK = %d, want 50", cfg.Recommend.MaxK)
	}
}

func TestBackendValues(t *testing.T) {
	b := newMemBackend()
	b.data["server.port"] = 8080
	b.data["log.level"] = "debug"
	b.data["recommend.default_k"] = 10

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Recommend.DefaultK != 10 {
		t.Errorf("Recommend.DefaultK = %d, want 10", cfg.Recommend.DefaultK)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := newMemBackend()
	b.data["server.port"] = 8080

	t.Setenv("RECSD_SERVER_PORT", "9090")
	t.Setenv("RECSD_API_TOKEN", "secret-token")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want env override 9090", cfg.Server.Port)
	}
	if cfg.Server.APIToken != "secret-token" {
		t.Errorf("Server.APIToken = %q, want secret-token", cfg.Server.APIToken)
	}
}

func TestInvalidEnvIntegerIgnored(t *testing.T) {
	t.Setenv("RECSD_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want default 5000", cfg.Server.Port)
	}
}

func TestKBoundsValidation(t *testing.T) {
	tests := []struct {
		name     string
		defaultK any
		maxK     any
	}{
		{"default exceeds max", 60, 50},
		{"zero default", 0, 50},
		{"negative max", 8, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newMemBackend()
			b.data["recommend.default_k"] = tt.defaultK
			b.data["recommend.max_k"] = tt.maxK
			if _, err := loadWith(b); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSetKeyRejectsSecrets(t *testing.T) {
	if err := SetKey("server.api_token", "leaked"); err == nil {
		t.Error("setting a secret via SetKey should fail")
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newFileBackend()
	if err := b.SetInt("server.port", 7070); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := b.SetString("log.level", "debug"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	// A fresh backend re-reads the file.
	b2 := newFileBackend()
	port, ok, err := b2.GetInt("server.port")
	if err != nil || !ok || port != 7070 {
		t.Errorf("GetInt = (%d, %v, %v), want (7070, true, nil)", port, ok, err)
	}
	level, ok, err := b2.GetString("log.level")
	if err != nil || !ok || level != "debug" {
		t.Errorf("GetString = (%q, %v, %v), want (debug, true, nil)", level, ok, err)
	}

	if err := b2.Delete("server.port"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := newFileBackend().GetInt("server.port"); ok {
		t.Error("server.port still present after Delete")
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, key := range ValidKeys() {
		if key == "server.api_token" {
			t.Error("ValidKeys includes the secret api_token key")
		}
	}
	if len(ValidKeys()) != 5 {
		t.Errorf("ValidKeys len = %d, want 5", len(ValidKeys()))
	}
}

func TestConfigFilePathUsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "recsd", "config.json")
	if got := configFilePath(); got != want {
		t.Errorf("configFilePath() = %q, want %q", got, want)
	}
}
