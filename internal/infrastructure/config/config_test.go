package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a config file into a temp dir and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

const validConfig = `
school:
  id: "test-school"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
directory:
  base_url: "https://mdm.example.test/api"
  network_id: "NET123"
  api_key: "test-api-key"
provision:
  teacher_password: "bootstrap-password"
api:
  host: "0.0.0.0"
  port: 8080
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.School.ID != "test-school" {
		t.Errorf("School.ID = %q, want %q", cfg.School.ID, "test-school")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.Directory.BaseURL != "https://mdm.example.test/api" {
		t.Errorf("Directory.BaseURL = %q", cfg.Directory.BaseURL)
	}

	// Defaults survive a partial file
	if cfg.Timeslots.AMStart != 8 || cfg.Timeslots.AMEnd != 12 {
		t.Errorf("default AM range = [%d, %d), want [8, 12)", cfg.Timeslots.AMStart, cfg.Timeslots.AMEnd)
	}
	if cfg.Actions.Workers != 6 {
		t.Errorf("default Actions.Workers = %d, want 6", cfg.Actions.Workers)
	}
	if cfg.Provision.ClassName != "Slate Control" {
		t.Errorf("default Provision.ClassName = %q", cfg.Provision.ClassName)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeTestConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := strings.Replace(validConfig, `id: "test-school"`, `id: ""`, 1)
	_, err := Load(writeTestConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for empty school.id, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SLATE_DATABASE_PATH", "/env/override.db")
	t.Setenv("SLATE_DIRECTORY_API_KEY", "env-api-key")
	t.Setenv("SLATE_API_PORT", "9090")

	cfg, err := Load(writeTestConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/env/override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Directory.APIKey != "env-api-key" {
		t.Errorf("Directory.APIKey = %q, want env override", cfg.Directory.APIKey)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
}

func TestValidate_JWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"empty secret", "", true},
		{"short secret", "too-short", true},
		{"valid secret", "this-secret-is-at-least-32-characters", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Directory.BaseURL = "https://mdm.example.test/api"
			cfg.Directory.NetworkID = "NET123"
			cfg.Directory.APIKey = "key"
			cfg.Provision.TeacherPassword = "pw"
			cfg.Security.JWT.Secret = tt.secret

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_TimeslotRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(*Config) {}, false},
		{"inverted am range", func(c *Config) { c.Timeslots.AMStart = 12; c.Timeslots.AMEnd = 8 }, true},
		{"hour above 24", func(c *Config) { c.Timeslots.HomeEnd = 25 }, true},
		{"negative hour", func(c *Config) { c.Timeslots.PMStart = -1 }, true},
		{"empty range allowed", func(c *Config) { c.Timeslots.AMStart = 9; c.Timeslots.AMEnd = 9 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Directory.BaseURL = "https://mdm.example.test/api"
			cfg.Directory.NetworkID = "NET123"
			cfg.Directory.APIKey = "key"
			cfg.Provision.TeacherPassword = "pw"
			cfg.Security.JWT.Secret = "this-secret-is-at-least-32-characters"
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ActionWorkers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Directory.BaseURL = "https://mdm.example.test/api"
	cfg.Directory.NetworkID = "NET123"
	cfg.Directory.APIKey = "key"
	cfg.Provision.TeacherPassword = "pw"
	cfg.Security.JWT.Secret = "this-secret-is-at-least-32-characters"
	cfg.Actions.Workers = 0

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for zero workers, got nil")
	}
}
