package build

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SourceFile is one named source file submitted to the cloud compiler.
// Name may contain path separators (e.g. "lib/helper.h"); Contents is
// expected to be UTF-8 text.
type SourceFile struct {
	Name     string
	Contents []byte
}

// FormBuilder assembles a multipart/form-data request body from named text
// fields and file parts. Parts are emitted in the order they are added. The
// boundary is a fresh random token per builder, so bodies from different
// requests never share a delimiter.
//
// The closing delimiter is "--boundary--" with no trailing CRLF; tests pin
// the exact byte framing because servers differ in what they tolerate.
type FormBuilder struct {
	boundary string
	buf      bytes.Buffer
}

// NewFormBuilder creates a builder with a random boundary. The boundary
// only needs to avoid colliding with body content; a UUID is random enough.
func NewFormBuilder() *FormBuilder {
	return &FormBuilder{boundary: uuid.NewString()}
}

// Boundary returns the boundary token used to frame this body.
func (b *FormBuilder) Boundary() string {
	return b.boundary
}

// ContentType returns the Content-Type header value matching this body.
func (b *FormBuilder) ContentType() string {
	return "multipart/form-data; boundary=" + b.boundary
}

// AddField appends a scalar text field.
func (b *FormBuilder) AddField(name, value string) {
	fmt.Fprintf(&b.buf, "--%s\r\nContent-Disposition: form-data; name=%q\r\n\r\n%s\r\n", b.boundary, name, value)
}

// AddTextFile appends a file part with UTF-8 text contents. Files whose
// contents are not valid UTF-8 are skipped rather than failing the whole
// request; the return value reports whether the part was added. A compile
// submission can mix encodings and one stray file should not sink it.
func (b *FormBuilder) AddTextFile(field, filename string, contents []byte) bool {
	if !utf8.Valid(contents) {
		return false
	}
	fmt.Fprintf(&b.buf, "--%s\r\nContent-Disposition: form-data; name=%q; filename=%q\r\n\r\n", b.boundary, field, filename)
	b.buf.Write(contents)
	b.buf.WriteString("\r\n")
	return true
}

// AddBinaryFile appends a file part with raw binary contents, marked with
// Content-Transfer-Encoding: binary.
func (b *FormBuilder) AddBinaryFile(field, filename string, contents []byte) {
	fmt.Fprintf(&b.buf, "--%s\r\nContent-Disposition: form-data; name=%q; filename=%q\r\nContent-Transfer-Encoding: binary\r\n\r\n", b.boundary, field, filename)
	b.buf.Write(contents)
	b.buf.WriteString("\r\n")
}

// Bytes returns the complete body including the closing delimiter. The
// builder itself is not consumed; Bytes may be called more than once.
func (b *FormBuilder) Bytes() []byte {
	body := make([]byte, 0, b.Len())
	body = append(body, b.buf.Bytes()...)
	body = append(body, "--"+b.boundary+"--"...)
	return body
}

// Len returns the byte length of the body Bytes would return, for use in a
// Content-Length header.
func (b *FormBuilder) Len() int {
	return b.buf.Len() + len(b.boundary) + 4
}
