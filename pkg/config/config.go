// Package config provides configuration management for faceattend.
// Configuration is read from a YAML file, layered with FACEATTEND_ environment
// variables, on top of sensible defaults.
package config

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrCodeEU/faceattend/pkg/vision"
	"github.com/joho/godotenv"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FACEATTEND_CAMERA__DEVICE.
const EnvPrefix = "FACEATTEND_"

// Detector backends.
const (
	BackendHaar = "haar"
	BackendDlib = "dlib"
)

// Config holds all faceattend configuration.
type Config struct {
	Camera      CameraConfig      `yaml:"camera"`
	Detector    DetectorConfig    `yaml:"detector"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Storage     StorageConfig     `yaml:"storage"`
	Enroll      EnrollConfig      `yaml:"enroll"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CameraConfig holds camera settings.
type CameraConfig struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// DetectorConfig selects the face detector backend and its offline parameters.
type DetectorConfig struct {
	Backend      string       `yaml:"backend"`
	CascadePath  string       `yaml:"cascade_path"`
	DlibModelDir string       `yaml:"dlib_model_dir"`
	Batch        DetectParams `yaml:"batch"`
}

// DetectParams mirrors vision.DetectParams with a square minimum size.
type DetectParams struct {
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"`
}

// Vision converts the config block to detector parameters.
func (p DetectParams) Vision() vision.DetectParams {
	return vision.DetectParams{
		ScaleFactor:  p.ScaleFactor,
		MinNeighbors: p.MinNeighbors,
		MinSize:      image.Pt(p.MinSize, p.MinSize),
	}
}

// RecognitionConfig holds model and live session settings.
type RecognitionConfig struct {
	ModelPath  string `yaml:"model_path"`
	ShowWindow bool   `yaml:"show_window"`
}

// StorageConfig holds the locations of the roster, ledger and photo corpus.
type StorageConfig struct {
	RosterPath     string `yaml:"roster_path"`
	AttendancePath string `yaml:"attendance_path"`
	PhotoDir       string `yaml:"photo_dir"`
	EncryptModel   bool   `yaml:"encrypt_model"`
}

// EnrollConfig holds photo sample capture settings.
type EnrollConfig struct {
	Samples int `yaml:"samples"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local/share/faceattend")
	modelDir := filepath.Join(dataDir, "models")

	return &Config{
		Camera: CameraConfig{
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
		},
		Detector: DetectorConfig{
			Backend:      BackendHaar,
			CascadePath:  filepath.Join(modelDir, "haarcascade_frontalface_default.xml"),
			DlibModelDir: modelDir,
			Batch: DetectParams{
				ScaleFactor:  vision.BatchParams.ScaleFactor,
				MinNeighbors: vision.BatchParams.MinNeighbors,
				MinSize:      vision.BatchParams.MinSize.X,
			},
		},
		Recognition: RecognitionConfig{
			ModelPath:  filepath.Join(dataDir, "trainer.yml"),
			ShowWindow: true,
		},
		Storage: StorageConfig{
			RosterPath:     filepath.Join(dataDir, "student_data.xlsx"),
			AttendancePath: filepath.Join(dataDir, "attendance.xlsx"),
			PhotoDir:       filepath.Join(dataDir, "photos"),
			EncryptModel:   false,
		},
		Enroll: EnrollConfig{
			Samples: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "faceattend.log"),
		},
	}
}

// Load loads configuration from the specified file and applies environment
// overrides. On error the defaults are returned alongside it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		return cfg, err
	}
	if err := loadEnv(k); err != nil {
		return cfg, err
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// LoadDefault tries the system and user config locations, falling back to
// defaults with environment overrides when neither exists.
func LoadDefault() (*Config, error) {
	candidates := []string{"/etc/faceattend/faceattend.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config/faceattend/faceattend.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := DefaultConfig()
	k := koanf.New(".")
	if err := loadEnv(k); err != nil {
		return cfg, err
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// loadEnv layers FACEATTEND_ variables (and a local .env file, if present)
// into k. A double underscore separates sections: FACEATTEND_STORAGE__PHOTO_DIR.
func loadEnv(k *koanf.Koanf) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to read .env: %w", err)
		}
	}

	provider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	return k.Load(provider, nil)
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	switch c.Detector.Backend {
	case BackendHaar:
		if c.Detector.CascadePath == "" {
			return errors.New("cascade_path is required for the haar backend")
		}
	case BackendDlib:
		if c.Detector.DlibModelDir == "" {
			return errors.New("dlib_model_dir is required for the dlib backend")
		}
	default:
		return fmt.Errorf("invalid detector backend: %s (must be haar or dlib)", c.Detector.Backend)
	}

	if c.Detector.Batch.ScaleFactor <= 1 {
		return fmt.Errorf("batch scale_factor must be greater than 1, got %f", c.Detector.Batch.ScaleFactor)
	}
	if c.Detector.Batch.MinNeighbors < 0 {
		return fmt.Errorf("batch min_neighbors must not be negative, got %d", c.Detector.Batch.MinNeighbors)
	}
	if c.Detector.Batch.MinSize < 0 {
		return fmt.Errorf("batch min_size must not be negative, got %d", c.Detector.Batch.MinSize)
	}

	if c.Recognition.ModelPath == "" {
		return errors.New("model_path must not be empty")
	}
	if c.Storage.RosterPath == "" || c.Storage.AttendancePath == "" || c.Storage.PhotoDir == "" {
		return errors.New("roster_path, attendance_path and photo_dir must be set")
	}

	if c.Enroll.Samples <= 0 {
		return fmt.Errorf("enroll samples must be positive, got %d", c.Enroll.Samples)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Camera.Device = ExpandPath(c.Camera.Device)
	c.Detector.CascadePath = ExpandPath(c.Detector.CascadePath)
	c.Detector.DlibModelDir = ExpandPath(c.Detector.DlibModelDir)
	c.Recognition.ModelPath = ExpandPath(c.Recognition.ModelPath)
	c.Storage.RosterPath = ExpandPath(c.Storage.RosterPath)
	c.Storage.AttendancePath = ExpandPath(c.Storage.AttendancePath)
	c.Storage.PhotoDir = ExpandPath(c.Storage.PhotoDir)
	c.Metrics.Textfile = ExpandPath(c.Metrics.Textfile)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// EnsureDirectories creates the parent directories of every configured path.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Recognition.ModelPath),
		filepath.Dir(c.Storage.RosterPath),
		filepath.Dir(c.Storage.AttendancePath),
		c.Storage.PhotoDir,
	}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// PhotoFolder returns the sample folder for one identity.
func (c *Config) PhotoFolder(id int) string {
	return filepath.Join(c.Storage.PhotoDir, fmt.Sprint(id))
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
