// Package config implements the typed configuration layer of the NPU
// plugin. Options are declared once with a key, a default and a parser,
// collected into an OptionsDesc, and validated string values are held in
// immutable Config snapshots. Updating a Config returns a new snapshot, so
// a Config handed to a compiler or a backend never changes under it.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Mode says when an option takes effect.
type Mode int

const (
	// ModeRunTime options affect inference only and are not part of the
	// compiled blob.
	ModeRunTime Mode = iota

	// ModeCompileTime options affect compilation and are forwarded to
	// compilers.
	ModeCompileTime

	// ModeBoth options affect both compilation and inference.
	ModeBoth
)

// String returns "RunTime", "CompileTime" or "Both".
func (m Mode) String() string {
	switch m {
	case ModeRunTime:
		return "RunTime"
	case ModeCompileTime:
		return "CompileTime"
	case ModeBoth:
		return "Both"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// IsCompileTime reports whether the option is forwarded to compilers.
func (m Mode) IsCompileTime() bool { return m == ModeCompileTime || m == ModeBoth }

// AnyOption is the type erased view of an Option[T], the form options are
// registered and introspected in.
type AnyOption interface {
	// Key is the option name, e.g. "NPU_PLATFORM".
	Key() string

	// Mode says when the option takes effect.
	Mode() Mode

	// Public reports whether the option is part of the plugin's public
	// property surface, as opposed to an internal tuning knob.
	Public() bool

	// DefaultString is the serialized default value.
	DefaultString() string

	// Env names the environment variable overriding the option's
	// default, empty when the option has none.
	Env() string

	// Validate parses raw and returns an error if it is not a legal value
	// for this option.
	Validate(raw string) error
}

// Option declares a configuration entry with values of type T.
type Option[T any] struct {
	key          string
	defaultValue T
	mode         Mode
	public       bool
	env          string
	parse        func(string) (T, error)
	format       func(T) string
}

// NewOption declares an option with an explicit parser and formatter.
func NewOption[T any](key string, defaultValue T, mode Mode, public bool,
	parse func(string) (T, error), format func(T) string) Option[T] {
	return Option[T]{
		key:          key,
		defaultValue: defaultValue,
		mode:         mode,
		public:       public,
		parse:        parse,
		format:       format,
	}
}

// Key implements AnyOption.
func (o Option[T]) Key() string { return o.key }

// Mode implements AnyOption.
func (o Option[T]) Mode() Mode { return o.mode }

// Public implements AnyOption.
func (o Option[T]) Public() bool { return o.public }

// Env implements AnyOption.
func (o Option[T]) Env() string { return o.env }

// WithEnv returns a copy of the option whose default can be overridden
// through the named environment variable.
func (o Option[T]) WithEnv(name string) Option[T] {
	o.env = name
	return o
}

// Default returns the option's default value.
func (o Option[T]) Default() T { return o.defaultValue }

// DefaultString implements AnyOption.
func (o Option[T]) DefaultString() string { return o.format(o.defaultValue) }

// Validate implements AnyOption.
func (o Option[T]) Validate(raw string) error {
	_, err := o.parse(raw)
	return errors.WithMessagef(err, "option %s", o.key)
}

// Format serializes a value of the option's type.
func (o Option[T]) Format(value T) string { return o.format(value) }

// StringOption declares an option holding a free form string.
func StringOption(key, defaultValue string, mode Mode, public bool) Option[string] {
	return NewOption(key, defaultValue, mode, public,
		func(raw string) (string, error) { return raw, nil },
		func(v string) string { return v })
}

// IntOption declares an option holding an integer.
func IntOption(key string, defaultValue int64, mode Mode, public bool) Option[int64] {
	return NewOption(key, defaultValue, mode, public,
		func(raw string) (int64, error) {
			v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			return v, errors.Wrapf(err, "%q is not an integer", raw)
		},
		func(v int64) string { return strconv.FormatInt(v, 10) })
}

// BoolOption declares an option holding a boolean, serialized as the
// conventional "YES"/"NO" property values. "TRUE"/"FALSE" and "1"/"0" are
// accepted on input.
func BoolOption(key string, defaultValue bool, mode Mode, public bool) Option[bool] {
	return NewOption(key, defaultValue, mode, public, ParseBoolValue, FormatBoolValue)
}

// ChoiceOption declares a string option restricted to a fixed set of
// values. Input is case insensitive, the canonical upper case spelling is
// stored.
func ChoiceOption(key, defaultValue string, mode Mode, public bool, allowed ...string) Option[string] {
	return NewOption(key, defaultValue, mode, public,
		func(raw string) (string, error) {
			v := strings.ToUpper(strings.TrimSpace(raw))
			if slices.Contains(allowed, v) {
				return v, nil
			}
			return "", errors.Errorf("option %s does not accept %q, expected one of %s",
				key, raw, strings.Join(allowed, ", "))
		},
		func(v string) string { return v })
}

// ParseBoolValue parses a property style boolean.
func ParseBoolValue(raw string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "YES", "TRUE", "1":
		return true, nil
	case "NO", "FALSE", "0":
		return false, nil
	}
	return false, errors.Errorf("%q is not a boolean, expected YES or NO", raw)
}

// FormatBoolValue serializes a property style boolean.
func FormatBoolValue(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}

// OptionsDesc is the registry of options a plugin instance understands.
// The plugin registers the built in options at construction and engine
// backends contribute theirs, see the backends package.
type OptionsDesc struct {
	options map[string]AnyOption
}

// NewOptionsDesc returns an empty options registry.
func NewOptionsDesc() *OptionsDesc {
	return &OptionsDesc{options: make(map[string]AnyOption)}
}

// Add registers options. Re-registering a key is a programming error and
// panics.
func (d *OptionsDesc) Add(opts ...AnyOption) {
	for _, opt := range opts {
		if _, found := d.options[opt.Key()]; found {
			exceptions.Panicf("config: option %s registered twice", opt.Key())
		}
		d.options[opt.Key()] = opt
	}
}

// Option returns the registered option for key.
func (d *OptionsDesc) Option(key string) (AnyOption, bool) {
	opt, found := d.options[key]
	return opt, found
}

// Has reports whether key is a registered option.
func (d *OptionsDesc) Has(key string) bool {
	_, found := d.options[key]
	return found
}

// Keys returns all registered option keys, sorted.
func (d *OptionsDesc) Keys() []string {
	keys := make([]string, 0, len(d.options))
	for key := range d.options {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// PublicKeys returns the keys of the public options, sorted.
func (d *OptionsDesc) PublicKeys() []string {
	keys := make([]string, 0, len(d.options))
	for key, opt := range d.options {
		if opt.Public() {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Config is an immutable snapshot of validated option values over an
// OptionsDesc. The zero value is not usable, construct with NewConfig.
type Config struct {
	desc   *OptionsDesc
	values map[string]string
}

// NewConfig returns an empty configuration over desc, every option at its
// default.
func NewConfig(desc *OptionsDesc) *Config {
	return &Config{desc: desc, values: make(map[string]string)}
}

// Desc returns the options registry this configuration validates against.
func (c *Config) Desc() *OptionsDesc { return c.desc }

// Update validates values against the registered options and returns a new
// configuration with them applied on top of c. Unknown keys and values that
// fail the option's parser are rejected and c is returned unchanged.
func (c *Config) Update(values map[string]string) (*Config, error) {
	next := &Config{desc: c.desc, values: make(map[string]string, len(c.values)+len(values))}
	for key, value := range c.values {
		next.values[key] = value
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		opt, found := c.desc.Option(key)
		if !found {
			return c, errors.Errorf("unsupported option %s", key)
		}
		if err := opt.Validate(values[key]); err != nil {
			return c, err
		}
		next.values[key] = values[key]
	}
	return next, nil
}

// Has reports whether key was explicitly set on this configuration.
func (c *Config) Has(key string) bool {
	_, found := c.values[key]
	return found
}

// RawString returns the raw serialized value of key. ok is false when the
// key was not explicitly set.
func (c *Config) RawString(key string) (value string, ok bool) {
	value, ok = c.values[key]
	return
}

// SetKeys returns the explicitly set keys, sorted.
func (c *Config) SetKeys() []string {
	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// String serializes the explicitly set entries as `KEY="VALUE"` pairs in
// key order, the form compiler build flags are assembled from.
func (c *Config) String() string {
	var sb strings.Builder
	for i, key := range c.SetKeys() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%q", key, c.values[key])
	}
	return sb.String()
}

// Get returns the value of opt in c: the parsed explicit value when set,
// otherwise the option's environment override when declared and present,
// the option's default last. Values were validated on Update, so a parse
// failure of a stored value means opt is not the option registered under
// its key, which is a programming error and panics. An unparseable
// environment value panics too, it is a fatal configuration error.
func Get[T any](c *Config, opt Option[T]) T {
	raw, ok := c.values[opt.key]
	if !ok && opt.env != "" {
		raw, ok = os.LookupEnv(opt.env)
	}
	if !ok {
		return opt.defaultValue
	}
	value, err := opt.parse(raw)
	if err != nil {
		exceptions.Panicf("config: option %s holds %q which its parser rejects: %v",
			opt.key, raw, err)
	}
	return value
}
