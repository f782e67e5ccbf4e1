package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/existflow/sockmatch/internal/tokenstore"
)

// Kind classifies API failures
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindForbidden
	KindConflict
	KindNotFound
	KindUpload
	KindPlatformUnsupported
	KindNetwork
	KindServer
)

// Sentinels for errors.Is. An *Error unwraps to the sentinel of its Kind.
var (
	ErrValidation          = errors.New("validation error")
	ErrAuthentication      = errors.New("authentication error")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrUpload              = errors.New("upload error")
	ErrPlatformUnsupported = tokenstore.ErrPlatformUnsupported
	ErrNetwork             = errors.New("network error")
	ErrServer              = errors.New("server error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuthentication:
		return ErrAuthentication
	case KindForbidden:
		return ErrForbidden
	case KindConflict:
		return ErrConflict
	case KindNotFound:
		return ErrNotFound
	case KindUpload:
		return ErrUpload
	case KindPlatformUnsupported:
		return ErrPlatformUnsupported
	case KindNetwork:
		return ErrNetwork
	case KindServer:
		return ErrServer
	}
	return nil
}

// String returns the taxonomy name
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindAuthentication:
		return "AuthenticationError"
	case KindForbidden:
		return "ForbiddenError"
	case KindConflict:
		return "ConflictError"
	case KindNotFound:
		return "NotFoundError"
	case KindUpload:
		return "UploadError"
	case KindPlatformUnsupported:
		return "PlatformUnsupported"
	case KindNetwork:
		return "NetworkError"
	case KindServer:
		return "ServerError"
	}
	return "UnknownError"
}

// Error is returned by every API call that fails
type Error struct {
	Kind   Kind
	Op     string // e.g. "socks.delete"
	Status int    // HTTP status, 0 when no response was received
	Detail string // server-provided detail message, if any
	Err    error  // underlying transport or decode error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the Kind sentinel and the underlying error. Upload
// failures caused by an expired session also match ErrAuthentication.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 3)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Kind == KindUpload && e.Status != 0 {
		if s := statusKind(e.Status).sentinel(); s != nil && s != ErrUpload {
			errs = append(errs, s)
		}
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the Kind of err, or KindUnknown
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, ErrPlatformUnsupported) {
		return KindPlatformUnsupported
	}
	return KindUnknown
}

// IsAuthFailure reports whether err means the session token is unusable
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

const genericMessage = "Something went wrong. Please try again."

// UserMessage returns text suitable for a dismissible notification: the
// server detail when present, otherwise a generic message for the kind.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return genericMessage
	}
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	switch apiErr.Kind {
	case KindAuthentication:
		return "Your session has expired. Please log in again."
	case KindNetwork:
		return "Could not reach the server. Check your connection."
	case KindNotFound:
		return "That item no longer exists."
	case KindConflict:
		return "That action conflicts with the current state. Refresh and try again."
	case KindUpload:
		return "Upload failed. Please try again."
	case KindPlatformUnsupported:
		return "This action is not supported on this platform."
	}
	return genericMessage
}

// statusKind maps an HTTP status to the default Kind
func statusKind(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServer
	case status >= 400:
		// any other client error means the request itself was rejected
		return KindValidation
	}
	return KindUnknown
}

// parseDetail extracts the human readable message from an error body.
// Accepts {"detail": "..."}, {"detail": [{"msg": "..."}]} and {"error": "..."}.
func parseDetail(body []byte) string {
	body = []byte(strings.TrimSpace(string(body)))
	if len(body) == 0 {
		return ""
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		if len(body) > 200 || body[0] == '<' {
			return ""
		}
		return string(body)
	}

	if len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return envelope.Error
}
