// Package compress provides whole-stream compression codecs for objectwire's
// encoded byte streams.
//
// objectwire never compresses individual tag bodies — a codec brackets the
// entire stream produced by a writer, after every tag has been emitted, and
// the matching decompression runs once before the reader reads its first
// tag byte. This keeps the tag-stream format in §4.4–§4.6 of the spec
// self-delimiting by structure regardless of which codec is configured.
//
//	type Codec interface {
//	    Compress(data []byte) ([]byte, error)
//	    Decompress(data []byte) ([]byte, error)
//	}
//
// Four algorithms are available, selected via format.CompressionType:
//   - None: no-op, for already-dense or incompressible graphs.
//   - Zstd: best ratio, moderate speed; good for archival streams.
//   - S2: balanced ratio/speed; good default for hot paths.
//   - LZ4: fastest decompression; good for read-heavy workloads.
package compress
