// Package config holds the viewer and exporter settings, read from a TOML file and overridden by CLI flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/pelletier/go-toml/v2"
)

// Display modes.
const (
	ModeBind    = "bind"
	ModeAnimate = "animate"
)

// Snapshot image formats.
const (
	FormatWebP = "webp"
	FormatTGA  = "tga"
)

// ErrInvalid is returned (wrapped) by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config holds all configurable paths and render settings.
type Config struct {
	// Paths
	DataDir        string `toml:"data_dir"`
	MeshPath       string `toml:"mesh_path"`
	AttachmentPath string `toml:"attachment_path"`
	SkeletonPath   string `toml:"skeleton_path"`

	// Skeleton settings. BoneCount is the number of bones read from every skeleton record; the file header's
	// bone field does not change it.
	BoneCount     int     `toml:"bone_count"`
	PlaybackSpeed float32 `toml:"playback_speed"`

	// Marker settings
	AxisLength float32 `toml:"axis_length"`
	Debug      bool    `toml:"debug"`
	Mode       string  `toml:"mode"`

	Window   WindowConfig   `toml:"window"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// WindowConfig holds the interactive viewer window settings.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
	MSAA   int    `toml:"msaa"`
}

// SnapshotConfig holds the headless exporter settings.
type SnapshotConfig struct {
	OutputDir   string `toml:"output_dir"`
	Format      string `toml:"format"`
	Size        int    `toml:"size"`
	Supersample int    `toml:"supersample"`
	Workers     int    `toml:"workers"`
	Animated    bool   `toml:"animated"`
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	DataDir    string
	Mesh       string
	Attachment string
	Skeleton   string
	Mode       string
	Debug      bool
	OutputDir  string
	Format     string
	Size       int
	Workers    int
}

// Load reads a TOML config file. Fields not set in the file keep their zero values; unknown keys are an error.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the parsed config
//   - error: a read or parse error
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML config from r, rejecting unknown keys.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - Config: the parsed config
//   - error: a parse error
func Decode(r io.Reader) (Config, error) {
	var cfg Config
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%s", strict.String())
		}
		return Config{}, err
	}
	return cfg, nil
}

// Write encodes the config as TOML.
//
// Parameters:
//   - w: the destination
//
// Returns:
//   - error: an encode or write error
func (c Config) Write(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// Resolve fills in any empty fields with defaults. CLI flags take priority when non-zero/non-empty.
// Relative asset and output paths are resolved against DataDir.
//
// Parameters:
//   - flags: the CLI overrides
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.DataDir != "" {
		c.DataDir = flags.DataDir
	}
	if flags.Mesh != "" {
		c.MeshPath = flags.Mesh
	}
	if flags.Attachment != "" {
		c.AttachmentPath = flags.Attachment
	}
	if flags.Skeleton != "" {
		c.SkeletonPath = flags.Skeleton
	}
	if flags.Mode != "" {
		c.Mode = flags.Mode
	}
	if flags.Debug {
		c.Debug = true
	}
	if flags.OutputDir != "" {
		c.Snapshot.OutputDir = flags.OutputDir
	}
	if flags.Format != "" {
		c.Snapshot.Format = flags.Format
	}
	if flags.Size > 0 {
		c.Snapshot.Size = flags.Size
	}
	if flags.Workers > 0 {
		c.Snapshot.Workers = flags.Workers
	}

	if c.DataDir != "" {
		c.MeshPath = join(c.DataDir, c.MeshPath)
		c.AttachmentPath = join(c.DataDir, c.AttachmentPath)
		c.SkeletonPath = join(c.DataDir, c.SkeletonPath)
	}
	if c.Snapshot.OutputDir == "" {
		c.Snapshot.OutputDir = join(c.DataDir, "snapshots")
	} else {
		c.Snapshot.OutputDir = join(c.DataDir, c.Snapshot.OutputDir)
	}

	// Defaults for skeleton and marker settings
	if c.BoneCount <= 0 {
		c.BoneCount = 18
	}
	if c.PlaybackSpeed <= 0 {
		c.PlaybackSpeed = 10
	}
	if c.AxisLength <= 0 {
		c.AxisLength = 0.3
	}
	c.Mode = common.Coalesce(c.Mode, ModeAnimate)

	// Defaults for window settings
	c.Window.Title = common.Coalesce(c.Window.Title, "Skin Viewer")
	if c.Window.Width <= 0 {
		c.Window.Width = 1280
	}
	if c.Window.Height <= 0 {
		c.Window.Height = 720
	}
	if c.Window.MSAA <= 0 {
		c.Window.MSAA = 4
	}

	// Defaults for snapshot settings
	c.Snapshot.Format = common.Coalesce(c.Snapshot.Format, FormatWebP)
	if c.Snapshot.Size <= 0 {
		c.Snapshot.Size = 512
	}
	if c.Snapshot.Supersample <= 0 {
		c.Snapshot.Supersample = 2
	}
	if c.Snapshot.Workers <= 0 {
		c.Snapshot.Workers = runtime.NumCPU()
	}
}

// Validate reports settings that no default can repair.
//
// Returns:
//   - error: an error wrapping ErrInvalid, or nil
func (c *Config) Validate() error {
	if c.MeshPath == "" {
		return fmt.Errorf("%w: mesh_path is required", ErrInvalid)
	}
	if c.Mode != ModeBind && c.Mode != ModeAnimate {
		return fmt.Errorf("%w: mode %q, want %q or %q", ErrInvalid, c.Mode, ModeBind, ModeAnimate)
	}
	if c.Snapshot.Format != FormatWebP && c.Snapshot.Format != FormatTGA {
		return fmt.Errorf("%w: snapshot format %q, want %q or %q", ErrInvalid, c.Snapshot.Format, FormatWebP, FormatTGA)
	}
	if c.Window.MSAA != 1 && c.Window.MSAA != 4 {
		return fmt.Errorf("%w: msaa %d, want 1 or 4", ErrInvalid, c.Window.MSAA)
	}
	return nil
}

// join resolves a relative path against base. Empty and absolute paths are returned unchanged.
func join(base, path string) string {
	if path == "" || base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
