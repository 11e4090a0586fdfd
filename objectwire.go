// Package objectwire implements a compact, identity-preserving binary
// serialization codec for Go object graphs, modeled on the wire format and
// reader/writer split of Java's FST (fast-serialization) library.
//
// # Core features
//
//   - Tag-based wire format distinguishing null, shared references, typed
//     values, and boxed primitives so small values don't pay a class-name
//     tax (format package)
//   - Identity preservation: pointers and interface values reachable more
//     than once from a single Encode round-trip to the same pointer on
//     Decode (objref package)
//   - A process-wide class metadata cache with pluggable field reflection,
//     letting struct layouts be computed once and reused across streams
//     (classmeta package)
//   - Per-stream class-name registries seeded from a global dictionary, so
//     common types cost one varint instead of their full name on the wire
//     after the first occurrence (classreg package)
//   - Pluggable per-type serializers for custom wire encodings, and
//     optional frame compression (plugin, compress packages)
//   - A bounded producer/consumer queue for streaming many independent
//     object-graph messages over a fixed-size buffer (queue package)
//
// # Basic usage
//
//	type Account struct {
//	    Name    string
//	    Balance int64
//	}
//
//	data, err := objectwire.Marshal(&Account{Name: "alice", Balance: 100})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var out Account
//	if err := objectwire.Unmarshal(data, &out); err != nil {
//	    log.Fatal(err)
//	}
//
// Marshal and Unmarshal build a fresh Writer/Reader per call against the
// package's default Configuration, the right choice for one-off or
// low-frequency encoding. A program encoding many messages should build one
// *config.Configuration and reuse writer.New/reader.New directly (or use the
// queue package) to amortize class-metadata lookups across calls.
package objectwire

import (
	"github.com/arloliu/objectwire/config"
	"github.com/arloliu/objectwire/reader"
	"github.com/arloliu/objectwire/writer"
)

// Marshal encodes v into the objectwire wire format using default codec
// settings. The returned slice is owned by the caller; it is not retained
// by the codec.
func Marshal(v any) ([]byte, error) {
	return writer.New(nil).Encode(v)
}

// Unmarshal decodes data, written by Marshal or a Writer sharing a
// compatible Configuration, into target. target must be a non-nil pointer.
func Unmarshal(data []byte, target any) error {
	return reader.New(nil).Decode(data, target)
}

// NewWriter returns a Writer configured by cfg, or by default settings if
// cfg is nil. Reuse the returned Writer across multiple Encode calls to
// avoid rebuilding its internal buffers and registries each time.
func NewWriter(cfg *config.Configuration) *writer.Writer {
	return writer.New(cfg)
}

// NewReader returns a Reader configured by cfg, or by default settings if
// cfg is nil. A Reader decoding a Writer's output must share that Writer's
// Configuration, or at least an equivalent one: class names travel on the
// wire, but resolving them to Go types, struct mode, cross-language enums
// and compression all come from Configuration, not from the stream.
func NewReader(cfg *config.Configuration) *reader.Reader {
	return reader.New(cfg)
}
