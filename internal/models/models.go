package models

import "fmt"

// SuggestedFilename is the download filename attached to every successful render.
const SuggestedFilename = "My_Certificate.mp4"

// GenerationRequest is one inbound certificate job: the raw display name and
// the uploaded photo bytes. It lives only for the duration of the request.
type GenerationRequest struct {
	Name     string
	Photo    []byte
	PhotoExt string // extension of the uploaded file, e.g. ".jpg" (informational)
}

// Result is a finished render. Path points at the muxed video inside the
// request workspace; ownership of Cleanup transfers to the caller, which must
// invoke it once streaming is done (whether the stream succeeded or not).
// Cleanup is idempotent.
type Result struct {
	Path     string
	Filename string
	Cleanup  func()
}

// ErrorKind classifies a pipeline failure so the HTTP layer can pick a status
// class without inspecting error strings.
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input" // caller problem: missing photo/name
	KindImageDecode  ErrorKind = "image_decode"  // caller problem: photo is not a decodable image
	KindServerConfig ErrorKind = "server_config" // operator problem: bundled asset missing
	KindRender       ErrorKind = "render"        // ffmpeg failed; diagnostics stay server-side
	KindIO           ErrorKind = "io"            // workspace/file operation failed
	KindBusy         ErrorKind = "busy"          // render slots exhausted, request rejected
)

// Error is the single error type crossing the generator boundary.
// Message is safe to show to callers; Err carries server-side detail
// (ffmpeg stderr, wrapped os errors) and is never surfaced directly.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CallerFault reports whether the failure was caused by the request itself
// rather than the server or its environment.
func (e *Error) CallerFault() bool {
	return e.Kind == KindInvalidInput || e.Kind == KindImageDecode
}

// NewInvalidInput builds a caller-class validation error.
func NewInvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// NewServerConfig builds an operator-class error for a missing/unreadable
// bundled asset.
func NewServerConfig(message string, err error) *Error {
	return &Error{Kind: KindServerConfig, Message: message, Err: err}
}

// ErrBusy is returned when no render slot frees up within the admission wait.
var ErrBusy = &Error{Kind: KindBusy, Message: "Server is busy, please retry shortly"}
