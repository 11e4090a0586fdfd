// Package config implements the Configuration collaborator (spec.md §2 row
// 8): it holds the class metadata cache, the custom-serializer plugin
// table, the optional compression codec, and the struct-mode and
// cross-language flags. It holds no pool of object-reference or
// class-name registries: each Writer or Reader built from it creates its
// own pair of registries and resets them between streams.
//
// The functional-options shape (Option, WithXxx constructors backed
// by internal/options) is the teacher's own configuration idiom, lifted
// from blob.NumericEncoderConfig's WithLittleEndian/WithTimestampEncoding
// family and generalised to objectwire's knobs.
package config

import (
	"errors"

	"github.com/arloliu/objectwire/classmeta"
	"github.com/arloliu/objectwire/compress"
	"github.com/arloliu/objectwire/internal/options"
	"github.com/arloliu/objectwire/plugin"
)

var errNegativeReadAhead = errors.New("objectwire/config: read-ahead hint must be non-negative")

// Configuration holds the knobs spec.md §6 "Configuration knobs" lists,
// plus the process-wide class cache and plugin table every Writer/Reader
// built from it shares.
type Configuration struct {
	// IgnoreAnnotations, if true, makes the field-reader loop disregard
	// field-level flags (plain/conditional/compressed/thin/flat) and
	// always use the default encoding for each kind.
	IgnoreAnnotations bool

	// StructMode, if true, disables identity preservation: every
	// reference is inlined and no HANDLE tags are ever emitted, the way
	// spec.md §8 scenario 6 describes.
	StructMode bool

	// CrossLanguage, if true, emits enums by name instead of ordinal so a
	// reader in another language can resolve them without sharing the
	// writer's ordinal assignment (SPEC_FULL.md §4.9).
	CrossLanguage bool

	// ReadExternalReadAhead is an advisory buffer sizing hint for
	// externalizable bodies.
	ReadExternalReadAhead int

	// Compression, if non-nil, is applied to the whole assembled stream
	// (SPEC_FULL.md §4.10), never to an individual tag body.
	Compression compress.Codec

	cache   *classmeta.Cache
	plugins *plugin.Table
}

// Option configures a Configuration at construction time.
type Option = options.Option[*Configuration]

// New returns a Configuration with the given options applied, a fresh
// plugin table, and the process-wide default class cache.
func New(opts ...Option) (*Configuration, error) {
	cfg := &Configuration{
		ReadExternalReadAhead: 5000,
		cache:                 classmeta.DefaultCache,
		plugins:               plugin.NewTable(),
	}

	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Cache returns the class metadata cache this configuration resolves
// classes against.
func (c *Configuration) Cache() *classmeta.Cache { return c.cache }

// Plugins returns the custom serializer plugin table.
func (c *Configuration) Plugins() *plugin.Table { return c.plugins }

// WithIgnoreAnnotations sets the ignoreAnnotations knob.
func WithIgnoreAnnotations(v bool) Option {
	return options.NoError(func(c *Configuration) { c.IgnoreAnnotations = v })
}

// WithStructMode sets the structMode knob.
func WithStructMode(v bool) Option {
	return options.NoError(func(c *Configuration) { c.StructMode = v })
}

// WithCrossLanguage sets the crossLanguage knob.
func WithCrossLanguage(v bool) Option {
	return options.NoError(func(c *Configuration) { c.CrossLanguage = v })
}

// WithReadExternalReadAhead sets the externalizable read-ahead hint.
func WithReadExternalReadAhead(n int) Option {
	return options.New(func(c *Configuration) error {
		if n < 0 {
			return errNegativeReadAhead
		}
		c.ReadExternalReadAhead = n

		return nil
	})
}

// WithCompression sets the whole-stream compression codec.
func WithCompression(codec compress.Codec) Option {
	return options.NoError(func(c *Configuration) { c.Compression = codec })
}

// WithClassCache overrides the default process-wide class metadata cache,
// e.g. to install a Reflector with custom struct-tag conventions.
func WithClassCache(cache *classmeta.Cache) Option {
	return options.NoError(func(c *Configuration) { c.cache = cache })
}

// WithPlugins installs a pre-populated plugin table instead of an empty
// one.
func WithPlugins(table *plugin.Table) Option {
	return options.NoError(func(c *Configuration) { c.plugins = table })
}
