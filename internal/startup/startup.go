package startup

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"photoref/internal/filesystem"
	"photoref/internal/logging"
	"photoref/internal/mediatypes"
	"photoref/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
	OS        string
	Arch      string
}

// String renders the build information on one line, as printed by --version.
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s %s/%s)",
		b.Version, b.Commit, b.BuildTime, b.GoVersion, b.OS, b.Arch)
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Project layout below the project directory.
const (
	StateDirName      = ".ref"
	DatabaseFile      = "ref.db"
	ThumbnailDirName  = "thumbnails"
	MetadataCacheFile = "photo_meta.json"
	ConfigFile        = "config.toml"
)

// Defaults applied when neither the config file nor the environment sets a value.
const (
	DefaultThumbnailSize    = 260
	DefaultThumbnailQuality = 85
	MinThumbnailSize        = 16
	MaxThumbnailSize        = 2048
)

// Environment overrides, applied after the config file.
const (
	EnvThumbnailSize    = "PHOTOREF_THUMBNAIL_SIZE"
	EnvThumbnailQuality = "PHOTOREF_THUMBNAIL_QUALITY"
	EnvUseVips          = "PHOTOREF_USE_VIPS"
)

// ErrNotInitialized is returned by LoadConfig when the project has no state directory.
var ErrNotInitialized = errors.New("project not initialized")

// FileConfig is the on-disk shape of .ref/config.toml.
type FileConfig struct {
	LibraryID        string   `toml:"library_id"`
	ThumbnailSize    int      `toml:"thumbnail_size,omitempty"`
	ThumbnailQuality int      `toml:"thumbnail_quality,omitempty"`
	Workers          int      `toml:"workers,omitempty"`
	ImportExtensions []string `toml:"import_extensions,omitempty"`
	UseVips          bool     `toml:"use_vips"`
}

// Config holds the resolved configuration of one project.
type Config struct {
	ProjectDir string

	// Derived paths
	StateDir          string
	DatabasePath      string
	ThumbnailDir      string
	MetadataCachePath string
	ConfigPath        string

	LibraryID        string
	ThumbnailSize    int
	ThumbnailQuality int
	Workers          int
	ImportExtensions mediatypes.ExtensionSet
	UseVips          bool
}

// Validate checks the tunable values.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ProjectDir, validation.Required),
		validation.Field(&c.ThumbnailSize, validation.Required, validation.Min(MinThumbnailSize), validation.Max(MaxThumbnailSize)),
		validation.Field(&c.ThumbnailQuality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
	)
}

// layout returns a Config with only the derived paths filled in.
func layout(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory path: %w", err)
	}
	state := filepath.Join(abs, StateDirName)
	return &Config{
		ProjectDir:        abs,
		StateDir:          state,
		DatabasePath:      filepath.Join(state, DatabaseFile),
		ThumbnailDir:      filepath.Join(state, ThumbnailDirName),
		MetadataCachePath: filepath.Join(state, MetadataCacheFile),
		ConfigPath:        filepath.Join(state, ConfigFile),
	}, nil
}

// LoadConfig resolves the configuration of an initialized project. The
// config file is optional; environment overrides are applied after it.
func LoadConfig(projectDir string) (*Config, error) {
	cfg, err := layout(projectDir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.StateDir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, cfg.ProjectDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat state directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("state path exists but is not a directory: %s", cfg.StateDir)
	}

	fc, err := readFileConfig(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.apply(fc)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) apply(fc FileConfig) {
	c.LibraryID = fc.LibraryID
	c.ThumbnailSize = fc.ThumbnailSize
	if c.ThumbnailSize == 0 {
		c.ThumbnailSize = DefaultThumbnailSize
	}
	c.ThumbnailQuality = fc.ThumbnailQuality
	if c.ThumbnailQuality == 0 {
		c.ThumbnailQuality = DefaultThumbnailQuality
	}
	c.Workers = fc.Workers
	if c.Workers == 0 {
		c.Workers = workers.ForCPU(8)
	}
	c.UseVips = fc.UseVips

	c.ThumbnailSize = getEnvInt(EnvThumbnailSize, c.ThumbnailSize)
	c.ThumbnailQuality = getEnvInt(EnvThumbnailQuality, c.ThumbnailQuality)
	c.Workers = getEnvInt(workers.EnvOverride, c.Workers)
	c.UseVips = getEnvBool(EnvUseVips, c.UseVips)
	c.ImportExtensions = mediatypes.NewExtensionSet(fc.ImportExtensions)
}

func readFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("  No config file at %s, using defaults", path)
		return FileConfig{}, nil
	}
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		logging.Warn("Unknown config key %q in %s", key.String(), path)
	}
	return fc, nil
}

// InitProject creates the state directory layout of a project and writes a
// default config file with a fresh library_id. An existing config file is
// kept; a library_id is only added when it is missing. Running InitProject on
// an initialized project is a no-op apart from that.
func InitProject(projectDir string) (*Config, error) {
	cfg, err := layout(projectDir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path is not a directory: %s", cfg.ProjectDir)
	}

	if err := ensureDirectory(cfg.StateDir, "state"); err != nil {
		return nil, fmt.Errorf("state directory error: %w", err)
	}
	if err := testWriteAccess(cfg.StateDir); err != nil {
		return nil, fmt.Errorf("state directory is not writable: %w", err)
	}
	if err := ensureDirectory(cfg.ThumbnailDir, "thumbnail"); err != nil {
		return nil, fmt.Errorf("thumbnail directory error: %w", err)
	}

	fc, err := readFileConfig(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if fc.LibraryID == "" {
		fc.LibraryID = uuid.NewString()
		if err := writeFileConfig(cfg.ConfigPath, fc); err != nil {
			return nil, err
		}
		logging.Info("Initialized project %s (library %s)", cfg.ProjectDir, fc.LibraryID)
	}

	return LoadConfig(cfg.ProjectDir)
}

func writeFileConfig(path string, fc FileConfig) error {
	var buf bytes.Buffer
	buf.WriteString("# photoref project configuration\n")
	if err := toml.NewEncoder(&buf).Encode(fc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LogConfig logs the resolved configuration at debug level.
func LogConfig(cfg *Config) {
	if !logging.IsDebugEnabled() {
		return
	}
	logSystemInfo()

	logging.Debug("------------------------------------------------------------")
	logging.Debug("CONFIGURATION")
	logging.Debug("------------------------------------------------------------")
	logging.Debug("  Project:            %s", cfg.ProjectDir)
	logging.Debug("  Database:           %s", cfg.DatabasePath)
	logging.Debug("  Thumbnails:         %s", cfg.ThumbnailDir)
	logging.Debug("  Metadata cache:     %s", cfg.MetadataCachePath)
	logging.Debug("  Library ID:         %s", cfg.LibraryID)
	logging.Debug("  Thumbnail size:     %d", cfg.ThumbnailSize)
	logging.Debug("  Thumbnail quality:  %d", cfg.ThumbnailQuality)
	logging.Debug("  Workers:            %d", cfg.Workers)
	logging.Debug("  Extensions:         %s", strings.Join(cfg.ImportExtensions.List(), " "))
	logging.Debug("  Use vips:           %v", cfg.UseVips)
	logging.Debug("  LOG_LEVEL:          %s", logging.GetLevel())
}

func logSystemInfo() {
	logging.Debug("------------------------------------------------------------")
	logging.Debug("SYSTEM INFORMATION")
	logging.Debug("------------------------------------------------------------")
	logging.Debug("  Build:           %s", GetBuildInfo())
	logging.Debug("  CPUs available:  %d", runtime.NumCPU())
	logging.Debug("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Debug("  (Container CPU limit detected)")
	}
	logging.Debug("  Started:         %s", time.Now().Format(time.RFC1123))
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
