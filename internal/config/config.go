package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/observe/internal/errors"
)

const (
	// JSONFileName is the name of the JSON configuration file.
	JSONFileName = "observe.json"

	// YAMLFileName is the name of the YAML configuration file.
	YAMLFileName = "observe.yaml"

	// DefaultAddr is the default server listen address.
	DefaultAddr = "localhost:7070"

	// DefaultMetricsPath is the default path of the metrics endpoint.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "observe"

	// DefaultSnapshotKey is the default snapshot object key.
	DefaultSnapshotKey = "snapshot.json"
)

// ConfigFileNames lists the file names Load looks for, in order.
var ConfigFileNames = []string{JSONFileName, YAMLFileName}

// Config represents the complete observe.json / observe.yaml configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Server contains binding server configuration.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Realm contains realm configuration.
	Realm RealmConfig `json:"realm,omitempty" yaml:"realm,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`

	// Snapshot contains snapshot persistence configuration.
	Snapshot SnapshotConfig `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`

	// Values declares the writable values to serve.
	Values []ValueConfig `json:"values,omitempty" yaml:"values,omitempty"`

	// Groups declares duplexed groups over values.
	Groups []GroupConfig `json:"groups,omitempty" yaml:"groups,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains binding server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// ReadTimeout is the request read timeout (e.g., "10s").
	ReadTimeout string `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`

	// WriteTimeout is the response write timeout (e.g., "10s").
	WriteTimeout string `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "5s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	// WritesPerSecond is the sustained write budget. Zero disables it.
	WritesPerSecond float64 `json:"writesPerSecond,omitempty" yaml:"writesPerSecond,omitempty"`

	// WriteBurst is the write budget burst size.
	WriteBurst int `json:"writeBurst,omitempty" yaml:"writeBurst,omitempty"`
}

// RealmConfig contains realm settings.
type RealmConfig struct {
	// Name is the realm name used in logs.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Check is the realm check mode: "off", "warn" or "panic".
	Check string `json:"check,omitempty" yaml:"check,omitempty"`

	// QueueSize is the task queue capacity.
	QueueSize int `json:"queueSize,omitempty" yaml:"queueSize,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// SnapshotConfig selects where snapshots are stored. Dir selects a disk
// store, Bucket an S3 store. Both empty disables snapshots.
type SnapshotConfig struct {
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Key is the object key of the snapshot.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// Restore loads the snapshot at startup.
	Restore bool `json:"restore,omitempty" yaml:"restore,omitempty"`
}

// Value types accepted in ValueConfig.Type.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
)

// ValueConfig declares a named value.
type ValueConfig struct {
	Name string `json:"name" yaml:"name"`

	// Type is one of "string", "int", "float" or "bool".
	Type string `json:"type" yaml:"type"`

	// Initial is the initial value; it must match Type.
	Initial any `json:"initial,omitempty" yaml:"initial,omitempty"`

	// ReadOnly exposes the value through a read-only view.
	ReadOnly bool `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`

	// Veto lists the rules a write must satisfy.
	Veto VetoConfig `json:"veto,omitempty" yaml:"veto,omitempty"`
}

// VetoConfig describes write rules. Unset rules are not enforced.
type VetoConfig struct {
	// Min and Max bound numeric values.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// OneOf restricts string values.
	OneOf []string `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`

	// Pattern is a regular expression string values must match.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// GroupConfig declares a duplexed value over several values of one type.
type GroupConfig struct {
	Name    string   `json:"name" yaml:"name"`
	Members []string `json:"members" yaml:"members"`

	// Empty is the group value when it has no members.
	Empty any `json:"empty,omitempty" yaml:"empty,omitempty"`

	// Multi is the group value when members disagree.
	Multi any `json:"multi,omitempty" yaml:"multi,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeout:     "10s",
			WriteTimeout:    "10s",
			ShutdownTimeout: "5s",
		},
		Realm: RealmConfig{
			Name:  "main",
			Check: "off",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
			Path:      DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			TracerName: "github.com/vango-dev/observe",
		},
		Snapshot: SnapshotConfig{
			Key: DefaultSnapshotKey,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for observe.json, then observe.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New(errors.CodeConfigNotFound).
		WithDetail("No observe.json or observe.yaml found in " + dir)
}

// LoadFile reads configuration from the specified file path. Files ending in
// .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path))
		}
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.CodeConfigParse).
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigParse).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// SaveTo writes the configuration to path, as YAML or JSON depending on the
// extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	// Server
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.WriteBurst == 0 && c.Server.WritesPerSecond > 0 {
		c.Server.WriteBurst = max(1, int(c.Server.WritesPerSecond))
	}

	// Realm
	if c.Realm.Name == "" {
		c.Realm.Name = "main"
	}
	if c.Realm.Check == "" {
		c.Realm.Check = "off"
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Metrics
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Snapshot
	if c.Snapshot.Key == "" {
		c.Snapshot.Key = DefaultSnapshotKey
	}
	if c.Snapshot.Dir != "" && !filepath.IsAbs(c.Snapshot.Dir) && c.Dir() != "" {
		c.Snapshot.Dir = filepath.Join(c.Dir(), c.Snapshot.Dir)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for _, d := range []struct{ field, value string }{
		{"server.readTimeout", c.Server.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout},
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return invalid("%s: %v", d.field, err)
		}
	}
	if c.Server.WritesPerSecond < 0 {
		return invalid("server.writesPerSecond must not be negative")
	}

	switch c.Realm.Check {
	case "", "off", "warn", "panic":
	default:
		return invalid("realm.check must be off, warn or panic, got %q", c.Realm.Check)
	}
	if c.Realm.QueueSize < 0 {
		return invalid("realm.queueSize must not be negative")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is not a level", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Snapshot.Dir != "" && c.Snapshot.Bucket != "" {
		return invalid("snapshot.dir and snapshot.bucket are mutually exclusive")
	}

	types := make(map[string]string, len(c.Values))
	for i, v := range c.Values {
		if v.Name == "" {
			return invalid("values[%d]: name is required", i)
		}
		if _, dup := types[v.Name]; dup {
			return invalid("values[%d]: duplicate name %q", i, v.Name)
		}
		if err := v.validate(); err != nil {
			return err
		}
		types[v.Name] = v.Type
	}

	for i, g := range c.Groups {
		if g.Name == "" {
			return invalid("groups[%d]: name is required", i)
		}
		if _, dup := types[g.Name]; dup {
			return invalid("groups[%d]: name %q is already used", i, g.Name)
		}
		if len(g.Members) == 0 {
			return invalid("group %q: members are required", g.Name)
		}
		groupType := ""
		for _, m := range g.Members {
			t, ok := types[m]
			if !ok {
				return invalid("group %q: unknown member %q", g.Name, m)
			}
			if groupType != "" && t != groupType {
				return invalid("group %q: members mix %s and %s values", g.Name, groupType, t)
			}
			groupType = t
		}
		types[g.Name] = groupType
	}
	return nil
}

func (v ValueConfig) validate() error {
	switch v.Type {
	case TypeString, TypeInt, TypeFloat, TypeBool:
	default:
		return invalid("value %q: unknown type %q", v.Name, v.Type)
	}
	if v.Initial != nil && !MatchesType(v.Type, v.Initial) {
		return invalid("value %q: initial value %v is not a %s", v.Name, v.Initial, v.Type)
	}
	if v.Veto.Pattern != "" {
		if _, err := regexp.Compile(v.Veto.Pattern); err != nil {
			return invalid("value %q: veto pattern: %v", v.Name, err)
		}
	}
	if v.Veto.Min != nil && v.Veto.Max != nil && *v.Veto.Min > *v.Veto.Max {
		return invalid("value %q: veto min is greater than max", v.Name)
	}
	return nil
}

// MatchesType reports whether a decoded JSON or YAML value fits type t.
func MatchesType(t string, value any) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeInt:
		switch n := value.(type) {
		case int:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case TypeFloat:
		switch value.(type) {
		case int, float64:
			return true
		}
		return false
	}
	return false
}

func invalid(format string, args ...any) *errors.Error {
	return errors.New(errors.CodeConfigInvalid).WithDetail(fmt.Sprintf(format, args...))
}

// Duration parses a duration field, returning fallback when it is empty or
// malformed. Validate reports malformed values.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No observe.json or observe.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or its nearest parent holding a config file.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
