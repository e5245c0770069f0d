package config

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Camera.Device != "/dev/video0" {
		t.Errorf("expected camera device /dev/video0, got %s", cfg.Camera.Device)
	}
	if cfg.Camera.Width != 640 || cfg.Camera.Height != 480 {
		t.Errorf("expected 640x480, got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Detector.Backend != BackendHaar {
		t.Errorf("expected haar backend, got %s", cfg.Detector.Backend)
	}
	if cfg.Detector.Batch.ScaleFactor != 1.2 || cfg.Detector.Batch.MinNeighbors != 5 || cfg.Detector.Batch.MinSize != 50 {
		t.Errorf("unexpected batch params: %+v", cfg.Detector.Batch)
	}
	if !strings.HasSuffix(cfg.Recognition.ModelPath, "trainer.yml") {
		t.Errorf("unexpected model path %s", cfg.Recognition.ModelPath)
	}
	if cfg.Enroll.Samples != 50 {
		t.Errorf("expected 50 enroll samples, got %d", cfg.Enroll.Samples)
	}
	if cfg.Storage.EncryptModel {
		t.Error("expected model encryption to be off by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "faceattend.yaml")
	configContent := `
camera:
  device: "1"
  width: 1280
  height: 720

detector:
  backend: dlib
  dlib_model_dir: /opt/models
  batch:
    scale_factor: 1.1
    min_neighbors: 7

recognition:
  model_path: /srv/attend/trainer.yml
  show_window: false

storage:
  roster_path: /srv/attend/student_data.xlsx
  encrypt_model: true

logging:
  level: debug
  file: ""
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Camera.Device != "1" || cfg.Camera.Width != 1280 || cfg.Camera.Height != 720 {
		t.Errorf("camera not loaded: %+v", cfg.Camera)
	}
	if cfg.Detector.Backend != BackendDlib || cfg.Detector.DlibModelDir != "/opt/models" {
		t.Errorf("detector not loaded: %+v", cfg.Detector)
	}
	if cfg.Detector.Batch.ScaleFactor != 1.1 || cfg.Detector.Batch.MinNeighbors != 7 {
		t.Errorf("batch params not loaded: %+v", cfg.Detector.Batch)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Detector.Batch.MinSize != 50 {
		t.Errorf("expected default min_size 50, got %d", cfg.Detector.Batch.MinSize)
	}
	if cfg.Recognition.ShowWindow {
		t.Error("expected show_window false")
	}
	if !cfg.Storage.EncryptModel {
		t.Error("expected encrypt_model true")
	}
	if !strings.HasSuffix(cfg.Storage.AttendancePath, "attendance.xlsx") {
		t.Errorf("expected default attendance path, got %s", cfg.Storage.AttendancePath)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.File != "" {
		t.Errorf("logging not loaded: %+v", cfg.Logging)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "faceattend.yaml")
	if err := os.WriteFile(configPath, []byte("camera:\n  device: /dev/video0\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("FACEATTEND_CAMERA__DEVICE", "/dev/video4")
	t.Setenv("FACEATTEND_ENROLL__SAMPLES", "20")
	t.Setenv("FACEATTEND_STORAGE__PHOTO_DIR", "/tmp/photos")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Camera.Device != "/dev/video4" {
		t.Errorf("expected env device override, got %s", cfg.Camera.Device)
	}
	if cfg.Enroll.Samples != 20 {
		t.Errorf("expected env samples override 20, got %d", cfg.Enroll.Samples)
	}
	if cfg.Storage.PhotoDir != "/tmp/photos" {
		t.Errorf("expected env photo dir override, got %s", cfg.Storage.PhotoDir)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if cfg == nil {
		t.Error("expected default config on error")
	}
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := Load(configPath)
	if cfg == nil {
		t.Error("expected default config on error")
	}
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("FACEATTEND_TEST_ROOT", "/srv")

	if got := ExpandPath("~/attend"); strings.HasPrefix(got, "~") {
		t.Errorf("tilde was not expanded: %s", got)
	}
	if got := ExpandPath("$FACEATTEND_TEST_ROOT/photos"); got != "/srv/photos" {
		t.Errorf("env var not expanded: %s", got)
	}
	if got := ExpandPath("relative/path"); got != "relative/path" {
		t.Errorf("unexpected expansion: %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		errorMsg string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"invalid camera width", func(c *Config) { c.Camera.Width = 0 }, "invalid camera resolution"},
		{"unknown backend", func(c *Config) { c.Detector.Backend = "yolo" }, "invalid detector backend"},
		{"haar without cascade", func(c *Config) { c.Detector.CascadePath = "" }, "cascade_path"},
		{"dlib without models", func(c *Config) {
			c.Detector.Backend = BackendDlib
			c.Detector.DlibModelDir = ""
		}, "dlib_model_dir"},
		{"scale factor of one", func(c *Config) { c.Detector.Batch.ScaleFactor = 1 }, "scale_factor"},
		{"negative neighbors", func(c *Config) { c.Detector.Batch.MinNeighbors = -1 }, "min_neighbors"},
		{"empty model path", func(c *Config) { c.Recognition.ModelPath = "" }, "model_path"},
		{"empty photo dir", func(c *Config) { c.Storage.PhotoDir = "" }, "photo_dir"},
		{"zero samples", func(c *Config) { c.Enroll.Samples = 0 }, "samples must be positive"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errorMsg, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Recognition.ModelPath = filepath.Join(root, "models", "trainer.yml")
	cfg.Storage.RosterPath = filepath.Join(root, "tables", "student_data.xlsx")
	cfg.Storage.AttendancePath = filepath.Join(root, "tables", "attendance.xlsx")
	cfg.Storage.PhotoDir = filepath.Join(root, "photos")
	cfg.Logging.File = filepath.Join(root, "logs", "faceattend.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{"models", "tables", "photos", "logs"} {
		if info, err := os.Stat(filepath.Join(root, dir)); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

func TestDetectParamsVision(t *testing.T) {
	p := DetectParams{ScaleFactor: 1.3, MinNeighbors: 4, MinSize: 60}.Vision()

	if p.ScaleFactor != 1.3 || p.MinNeighbors != 4 || p.MinSize != image.Pt(60, 60) {
		t.Errorf("unexpected conversion: %+v", p)
	}
}

func TestPhotoFolder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.PhotoDir = "/srv/photos"

	if got := cfg.PhotoFolder(12); got != "/srv/photos/12" {
		t.Errorf("PhotoFolder(12) = %s", got)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Camera.Device = "/dev/video9"

	data, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML failed: %v", err)
	}

	var decoded Config
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("rendered YAML does not parse: %v", err)
	}
	if decoded.Camera.Device != "/dev/video9" {
		t.Errorf("device lost in dump, got %s", decoded.Camera.Device)
	}
	if !strings.Contains(string(data), "min_neighbors: 5") {
		t.Errorf("expected batch params in dump:\n%s", data)
	}
}
