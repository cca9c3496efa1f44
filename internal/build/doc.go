// Package build interprets cloud compile results for Particle firmware.
//
// This package contains the pure, synchronous pieces of the firmware build
// pipeline: encoding a multipart compile request, decoding the linker size
// summary returned on success, and parsing free-form compiler output into
// structured, line-addressable build issues on failure.
//
// # Compile Responses
//
// The cloud compile endpoint returns a JSON object discriminated by an "ok"
// field:
//
//	{ "ok": true,  "binary_id": "...", "binary_url": "...",
//	  "expires_at": "2020-01-01T00:00:00Z", "sizeInfo": "..." }
//
//	{ "ok": false, "output": "...", "stdout": "...",
//	  "errors": ["main.c:12:5: error: ...", ...] }
//
// InterpretCompileResponse turns the raw body into a BuildResult. A compile
// failure is a value, not an error: callers branch on the result to learn
// whether their code compiled. Only protocol violations (a body that is not
// a JSON object, a missing discriminator, or a claimed success with missing
// fields) surface as errors.
//
// # Diagnostics
//
// Compiler output arrives as opaque error strings. Lines of the form
//
//	path:line:col: kind: message
//
// open a new BuildIssue; anything else (notes, code excerpts, caret markers)
// is treated as continuation text and appended to the message of the issue
// that precedes it. Unrecognized lines never fail the parse.
//
// # Multipart Encoding
//
// FormBuilder assembles the multipart/form-data body carrying source files
// to the compile and flash endpoints. The body is built fully in memory;
// firmware sources and binaries are small enough that streaming is not
// worth the complexity.
//
// # Thread Safety
//
// All functions in this package are stateless transformations over byte
// slices and strings, and are safe for concurrent use. A FormBuilder is a
// single-request scratch buffer and must not be shared between goroutines.
package build
