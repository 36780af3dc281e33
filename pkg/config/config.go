// Package config implements Firm's global configuration: the on-disk
// defaults that seed an executor/registry process (registries in
// priority order, trusted-key bundle path, sandbox root, execution queue
// depth, cancellation grace period, result retention window), overridden
// by environment variables. The yaml-file-plus-static-accessors shape,
// including the XDG path discovery and the Get/Set-by-yaml-tag-name
// reflection accessors, is grounded on knative-func's pkg/config.Global;
// the environment overlay is new (Firm has no per-function config file to
// layer against, only a single daemon-wide config) and uses
// github.com/spf13/viper, which is unused by knative-func itself but
// carried by the broader example pack's dependency surface for exactly
// this env-overlay concern.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	// Filename into which Global is serialized.
	Filename = "config.yaml"

	// EnvPrefix namespaces every environment variable overlay key, e.g.
	// FIRM_SANDBOX_ROOT.
	EnvPrefix = "FIRM"

	// DefaultQueueDepth is the default number of executions the executor
	// will admit before ResourceExhausted is returned.
	DefaultQueueDepth = 64

	// DefaultGracePeriod is how long a Cancel waits for cooperative exit
	// before forcefully tearing down an execution.
	DefaultGracePeriod = 5 * time.Second

	// DefaultRetention is how long a terminal Execution's result remains
	// fetchable before the executor reclaims it.
	DefaultRetention = 10 * time.Minute

	// DefaultMaxResolutionDepth bounds recursive runtime resolution to
	// guard against a cycle in runtime-to-runtime delegation.
	DefaultMaxResolutionDepth = 8
)

// Global configuration settings for a Firm executor/registry process.
type Global struct {
	// Registries lists registry backends in priority order; the first
	// to hold a match wins ties.
	Registries []string `yaml:"registries,omitempty"`

	// TrustedKeysPath points at the bundle of publisher public keys used
	// to verify Function.Signature.
	TrustedKeysPath string `yaml:"trustedKeysPath,omitempty"`

	// AllowUnverified permits registering functions with no recognized
	// publisher signature; false in production configurations.
	AllowUnverified bool `yaml:"allowUnverified,omitempty"`

	// SandboxRoot is the directory under which per-execution sandbox
	// directories (runtime bundles, mapped attachments) are created.
	SandboxRoot string `yaml:"sandboxRoot,omitempty"`

	// RuntimeDirs lists directories scanned for on-disk runtime bundles.
	RuntimeDirs []string `yaml:"runtimeDirs,omitempty"`

	// QueueDepth bounds concurrently admitted executions.
	QueueDepth int `yaml:"queueDepth,omitempty"`

	// GracePeriodSeconds is DefaultGracePeriod's on-disk representation
	// (yaml has no native duration type).
	GracePeriodSeconds int `yaml:"gracePeriodSeconds,omitempty"`

	// RetentionSeconds is DefaultRetention's on-disk representation.
	RetentionSeconds int `yaml:"retentionSeconds,omitempty"`

	// MaxResolutionDepth bounds recursive runtime resolution.
	MaxResolutionDepth int `yaml:"maxResolutionDepth,omitempty"`

	// LogJSON selects firmlog's structured-JSON encoder over its
	// human-readable console encoder.
	LogJSON bool `yaml:"logJSON,omitempty"`

	// LogLevel is one of zap's level names ("debug", "info", "warn",
	// "error").
	LogLevel string `yaml:"logLevel,omitempty"`
	// NOTE: all members must carry their yaml tag name, even when it
	// equals the default, since List/Get/Set match on it.
}

// New returns a Global with every member set to its static default.
func New() Global {
	return Global{
		QueueDepth:         DefaultQueueDepth,
		GracePeriodSeconds: int(DefaultGracePeriod.Seconds()),
		RetentionSeconds:   int(DefaultRetention.Seconds()),
		MaxResolutionDepth: DefaultMaxResolutionDepth,
		LogLevel:           "info",
	}
}

func (c Global) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSeconds) * time.Second
}

func (c Global) Retention() time.Duration {
	return time.Duration(c.RetentionSeconds) * time.Second
}

// NewDefault returns a Global populated by static defaults, the config
// file at File() (if present), then an environment variable overlay
// (highest precedence). The config file is not required to exist.
func NewDefault() (Global, error) {
	c := New()

	bb, err := os.ReadFile(File())
	if err != nil {
		if !os.IsNotExist(err) {
			return c, fmt.Errorf("reading global config: %w", err)
		}
	} else if err := yaml.Unmarshal(bb, &c); err != nil {
		return c, fmt.Errorf("parsing global config: %w", err)
	}

	return applyEnvOverlay(c)
}

// Load reads the config exactly as it exists at path, with no static
// defaults and no environment overlay.
func Load(path string) (Global, error) {
	var c Global
	bb, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading global config: %w", err)
	}
	if err := yaml.Unmarshal(bb, &c); err != nil {
		return c, fmt.Errorf("parsing global config: %w", err)
	}
	return c, nil
}

// Write serializes c to path.
func (c Global) Write(path string) error {
	bb, err := yaml.Marshal(&c)
	if err != nil {
		return fmt.Errorf("marshaling global config: %w", err)
	}
	return os.WriteFile(path, bb, 0o644)
}

// applyEnvOverlay lets FIRM_* environment variables override the
// sandbox_root, trusted_keys_path, queue_depth, allow_unverified,
// log_level, log_json and registries fields already populated from
// defaults/file; other fields have no environment override. viper is
// used purely as an
// env-binding/coercion layer over the zero-allocation struct we already
// built (not as the source of truth for defaults, which remain New()'s
// responsibility).
func applyEnvOverlay(c Global) (Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if s := v.GetString("sandbox_root"); s != "" {
		c.SandboxRoot = s
	}
	if s := v.GetString("trusted_keys_path"); s != "" {
		c.TrustedKeysPath = s
	}
	if v.IsSet("queue_depth") {
		c.QueueDepth = v.GetInt("queue_depth")
	}
	if v.IsSet("allow_unverified") {
		c.AllowUnverified = v.GetBool("allow_unverified")
	}
	if s := v.GetString("log_level"); s != "" {
		c.LogLevel = s
	}
	if v.IsSet("log_json") {
		c.LogJSON = v.GetBool("log_json")
	}
	if s := v.GetString("registries"); s != "" {
		c.Registries = strings.Split(s, ",")
	}
	return c, nil
}

// Dir is the directory holding the global config file, derived lowest to
// highest precedence:
//  1. zero value (no home directory available)
//  2. ~/.config/firm
//  3. $XDG_CONFIG_HOME/firm
func Dir() (path string) {
	if home, err := os.UserHomeDir(); err == nil {
		path = filepath.Join(home, ".config", "firm")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		path = filepath.Join(xdg, "firm")
	}
	return
}

// File returns the path at which to look for a config file. Override
// with FIRM_CONFIG_FILE.
func File() string {
	path := filepath.Join(Dir(), Filename)
	if e := os.Getenv("FIRM_CONFIG_FILE"); e != "" {
		path = e
	}
	return path
}

// CreatePaths creates the on-disk config directory structure, tolerant
// of it already existing.
func CreatePaths() error {
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("creating global config path: %w", err)
	}
	return nil
}

// List returns the globally configurable setting names (their yaml tag),
// sorted, for use by a CLI's "config get/set" surface.
func List() []string {
	t := reflect.TypeOf(Global{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// Get the named setting's value from c. Returns nil if name is unknown.
func Get(c Global, name string) any {
	t := reflect.TypeOf(c)
	for i := 0; i < t.NumField(); i++ {
		if strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0] != name {
			continue
		}
		return reflect.ValueOf(c).Field(i).Interface()
	}
	return nil
}

// Set the named setting on c to value, coercing value into the field's
// type. Returns an error if name is unknown or value does not coerce.
func Set(c Global, name, value string) (Global, error) {
	fieldValue, err := getField(&c, name)
	if err != nil {
		return c, err
	}

	switch fieldValue.Kind() {
	case reflect.String:
		fieldValue.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return c, fmt.Errorf("parsing bool for %q: %w", name, err)
		}
		fieldValue.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return c, fmt.Errorf("parsing int for %q: %w", name, err)
		}
		fieldValue.SetInt(int64(n))
	case reflect.Slice:
		fieldValue.Set(reflect.ValueOf(strings.Split(value, ",")))
	default:
		return c, fmt.Errorf("global config value type not supported: %v", fieldValue.Kind())
	}
	return c, nil
}

func getField(c *Global, name string) (reflect.Value, error) {
	t := reflect.TypeOf(c).Elem()
	for i := 0; i < t.NumField(); i++ {
		if strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0] == name {
			return reflect.ValueOf(c).Elem().Field(i), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("field not found on global config: %v", name)
}
