package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors returned by InterpretCompileResponse for responses that violate
// the compile endpoint's schema. These are infrastructure failures, never
// compile failures.
var (
	// ErrMalformedResponse means the body was not a JSON object carrying
	// the "ok" discriminator at all.
	ErrMalformedResponse = errors.New("malformed compile response")

	// ErrProtocolMismatch means the server claimed success but the
	// response is missing or has malformed required fields.
	ErrProtocolMismatch = errors.New("compile response violates success schema")
)

// BinaryInfo describes a successfully compiled firmware binary held by the
// cloud until Expires.
type BinaryInfo struct {
	BinaryID  string     `json:"binary_id"`
	BinaryURL string     `json:"binary_url"`
	Expires   time.Time  `json:"expires_at"`
	SizeInfo  SizeReport `json:"size_info"`
}

// BuildFailure is a compile attempt the compiler rejected. Errors is the
// untouched server payload and Issues the structured view derived from it;
// both are kept because parsing can silently drop diagnostics that do not
// match the expected shape.
type BuildFailure struct {
	Output string       `json:"output"`
	Stdout string       `json:"stdout"`
	Errors []string     `json:"errors"`
	Issues []BuildIssue `json:"issues"`
}

// BuildResult is the outcome of one compile attempt: exactly one of Binary
// or Failure is set. Callers branch on Succeeded to learn whether their
// code compiled; a failure is data, not an error.
type BuildResult struct {
	Binary  *BinaryInfo
	Failure *BuildFailure
}

// Succeeded reports whether the compile produced a binary.
func (r *BuildResult) Succeeded() bool {
	return r.Binary != nil
}

// compileResponse mirrors the compile endpoint's JSON wire shape. Pointer
// fields distinguish absent from zero so the success schema can be checked
// explicitly.
type compileResponse struct {
	OK        *bool    `json:"ok"`
	BinaryID  *string  `json:"binary_id"`
	BinaryURL *string  `json:"binary_url"`
	ExpiresAt *string  `json:"expires_at"`
	SizeInfo  *string  `json:"sizeInfo"`
	Output    string   `json:"output"`
	Stdout    string   `json:"stdout"`
	Errors    []string `json:"errors"`
}

// InterpretCompileResponse decodes a compile endpoint response body into a
// BuildResult.
//
// A body that is not a JSON object, or that lacks the "ok" discriminator,
// returns ErrMalformedResponse. When ok is true the binary_id, binary_url,
// expires_at (RFC 3339), and decodable sizeInfo fields must all be present;
// any miss returns ErrProtocolMismatch, since the server claimed success.
// When ok is false the failure fields all default to empty, and an empty
// failure report is legitimate (not every broken build produces
// diagnostics).
func InterpretCompileResponse(body []byte) (*BuildResult, error) {
	var resp compileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.OK == nil {
		return nil, fmt.Errorf("%w: missing ok field", ErrMalformedResponse)
	}

	if !*resp.OK {
		failure := &BuildFailure{
			Output: resp.Output,
			Stdout: resp.Stdout,
			Errors: resp.Errors,
			Issues: ParseIssues(resp.Errors),
		}
		if failure.Errors == nil {
			failure.Errors = []string{}
		}
		return &BuildResult{Failure: failure}, nil
	}

	if resp.BinaryID == nil || resp.BinaryURL == nil || resp.ExpiresAt == nil || resp.SizeInfo == nil {
		return nil, fmt.Errorf("%w: missing required field", ErrProtocolMismatch)
	}

	expires, err := time.Parse(time.RFC3339, *resp.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad expires_at %q: %v", ErrProtocolMismatch, *resp.ExpiresAt, err)
	}

	size, ok := DecodeSizeReport(*resp.SizeInfo)
	if !ok {
		return nil, fmt.Errorf("%w: undecodable sizeInfo", ErrProtocolMismatch)
	}

	return &BuildResult{
		Binary: &BinaryInfo{
			BinaryID:  *resp.BinaryID,
			BinaryURL: *resp.BinaryURL,
			Expires:   expires,
			SizeInfo:  size,
		},
	}, nil
}
