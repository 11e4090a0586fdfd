// Package classreg implements the class-name registry (spec.md §4.2): a
// per-stream bidirectional mapping between class identities and small
// integer codes, seeded by a process-wide global dictionary.
//
// Its write-side shape is grounded on the teacher's internal/collision
// Tracker: a hash/name map paired with an ordered slice, reset between
// uses rather than reallocated, so a Registry can be pulled from a pool
// and reused across streams the same way Tracker is reused across blobs.
package classreg

import (
	"sync"

	"github.com/arloliu/objectwire/errs"
	"github.com/arloliu/objectwire/internal/pool"
	"github.com/arloliu/objectwire/varint"
)

var (
	globalMu    sync.RWMutex
	globalNames []string
	globalCodes = map[string]int{}
)

// RegisterGlobal adds name to the process-wide seed dictionary every new
// Registry starts from. It is a no-op if name is already registered
// globally or by an earlier call. Intended for well-known classes a
// Configuration wants pre-assigned low codes for across every stream.
func RegisterGlobal(name string) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if _, ok := globalCodes[name]; ok {
		return
	}
	globalNames = append(globalNames, name)
	globalCodes[name] = len(globalNames) // codes are 1-based
}

func seed() ([]string, map[string]int) {
	globalMu.RLock()
	defer globalMu.RUnlock()

	names := make([]string, len(globalNames))
	copy(names, globalNames)
	codes := make(map[string]int, len(globalCodes))
	for k, v := range globalCodes {
		codes[k] = v
	}

	return names, codes
}

// Registry is the per-stream class-name registry. Not safe for concurrent
// use; a Writer or Reader owns exactly one and uses it from a single
// goroutine, the same way a stream itself is single-threaded.
type Registry struct {
	names []string       // code (1-based) -> name
	codes map[string]int // name -> code
}

// New returns a registry seeded from the global dictionary.
func New() *Registry {
	names, codes := seed()

	return &Registry{names: names, codes: codes}
}

// Reset restores the registry to its seeded baseline, discarding any
// classes observed during the stream just finished. Called between uses
// of a pooled Registry (spec.md §4.2: "the registry is reset on stream
// reset").
func (r *Registry) Reset() {
	names, codes := seed()
	r.names = names
	r.codes = codes
}

// Encode is the write-side operation spec.md §4.2 describes. If name
// already has a code, it writes that code as a varint. Otherwise it
// assigns the next code, writes the zero sentinel, the name as a UTF
// string, and then installs snippets: ancestor-chain names the caller
// supplies (e.g. a Go embedding chain) that are written unconditionally
// so the reader stays byte-aligned, but only assigned a fresh code when
// not already known — making repeated snippet installs a no-op beyond the
// bytes they consume.
func (r *Registry) Encode(buf *pool.ByteBuffer, name string, snippets []string) int {
	if code, ok := r.codes[name]; ok {
		varint.WriteCInt(buf, int32(code))

		return code
	}

	code := r.assign(name)
	varint.WriteCInt(buf, 0)
	varint.WriteStringUTF(buf, name)

	varint.WriteCInt(buf, int32(len(snippets)))
	for _, s := range snippets {
		varint.WriteStringUTF(buf, s)
		if _, ok := r.codes[s]; !ok {
			r.assign(s)
		}
	}

	return code
}

func (r *Registry) assign(name string) int {
	code := len(r.names) + 1
	r.names = append(r.names, name)
	r.codes[name] = code

	return code
}

// Decode is the read-side operation. It returns the resolved class name,
// its code, and whether this was the class's first appearance in the
// stream.
func (r *Registry) Decode(buf *pool.ByteBuffer) (name string, code int, isNew bool, err error) {
	raw, err := varint.ReadCInt(buf)
	if err != nil {
		return "", 0, false, err
	}

	if raw != 0 {
		code = int(raw)
		if code < 1 || code > len(r.names) {
			return "", 0, false, errs.ErrUnknownClass
		}

		return r.names[code-1], code, false, nil
	}

	name, err = varint.ReadStringUTF(buf)
	if err != nil {
		return "", 0, false, err
	}
	code = r.assign(name)

	count, err := varint.ReadCInt(buf)
	if err != nil {
		return "", 0, false, err
	}
	for i := int32(0); i < count; i++ {
		s, err := varint.ReadStringUTF(buf)
		if err != nil {
			return "", 0, false, err
		}
		if _, ok := r.codes[s]; !ok {
			r.assign(s)
		}
	}

	return name, code, true, nil
}

// NameForCode returns the class name already assigned to code, if any.
func (r *Registry) NameForCode(code int) (string, bool) {
	if code < 1 || code > len(r.names) {
		return "", false
	}

	return r.names[code-1], true
}

// CodeForName returns the code already assigned to name, if any.
func (r *Registry) CodeForName(name string) (int, bool) {
	c, ok := r.codes[name]

	return c, ok
}
