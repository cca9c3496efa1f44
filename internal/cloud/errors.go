package cloud

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred talking to the
// cloud API.
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection refused, timeout, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates an authentication failure (missing, expired, or rejected token)
	ErrTypeAuth
	// ErrTypeHTTP indicates an HTTP-level error (unexpected status code)
	ErrTypeHTTP
	// ErrTypeParse indicates a parsing error (malformed JSON, invalid response)
	ErrTypeParse
	// ErrTypeProtocol indicates a response that violates the expected schema
	// despite being syntactically valid (e.g. a claimed compile success with
	// required fields missing)
	ErrTypeProtocol
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the server refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeProtocol:
		return "Protocol Mismatch"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// CloudError represents an error that occurred during cloud API communication
type CloudError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *CloudError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *CloudError) Unwrap() error {
	return e.Err
}

// classifyNetworkError analyzes a transport error and returns a more
// specific error type.
func classifyNetworkError(err error) *CloudError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &CloudError{
			Type:      ErrTypeTimeout,
			Message:   "request timed out",
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &CloudError{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:       err,
			Retryable: false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &CloudError{
				Type:      ErrTypeConnectionRefused,
				Message:   "server refused connection",
				Err:       err,
				Retryable: true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Recursively classify the underlying error
		return classifyNetworkError(urlErr.Err)
	}

	return &CloudError{
		Type:      ErrTypeNetwork,
		Message:   "network error occurred",
		Err:       err,
		Retryable: true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *CloudError {
	classified := classifyNetworkError(err)
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &CloudError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *CloudError {
	return &CloudError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
	}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *CloudError {
	retryable := statusCode >= 500 // Server errors are retryable
	return &CloudError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *CloudError {
	return &CloudError{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewProtocolError creates a protocol-mismatch error. These are fatal:
// the server answered, but not in the shape the API promises.
func NewProtocolError(message string, err error) *CloudError {
	return &CloudError{
		Type:      ErrTypeProtocol,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// IsNetworkError checks if an error is a network error (including timeout,
// connection refused, DNS, etc.)
func IsNetworkError(err error) bool {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Type == ErrTypeNetwork ||
			cloudErr.Type == ErrTypeTimeout ||
			cloudErr.Type == ErrTypeConnectionRefused ||
			cloudErr.Type == ErrTypeDNS
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Type == ErrTypeAuth
	}
	return false
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Type == ErrTypeHTTP
	}
	return false
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Type == ErrTypeParse
	}
	return false
}

// IsProtocolError checks if an error is a protocol-mismatch error
func IsProtocolError(err error) bool {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Type == ErrTypeProtocol
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// ShortErrorMessage returns a concise, user-friendly error message
func ShortErrorMessage(err error) string {
	var cloudErr *CloudError
	if !errors.As(err, &cloudErr) {
		return err.Error()
	}

	switch cloudErr.Type {
	case ErrTypeTimeout:
		return "Cloud not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Connection refused - check the API endpoint"
	case ErrTypeDNS:
		return "Cannot resolve API hostname"
	case ErrTypeAuth:
		return "Authentication failed - run 'particle-cfg login' to refresh your token"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Cloud error (HTTP %d)", cloudErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse cloud response"
	case ErrTypeProtocol:
		return "Cloud response did not match the API schema"
	default:
		return cloudErr.Message
	}
}
