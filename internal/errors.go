package internal

import (
	"errors"
	"strings"
)

var (
	// ErrUnsupported means the caption backend lacks the requested capability
	ErrUnsupported = errors.New("operation not supported by caption backend")
	// ErrNoTranscript means no caption or audio path produced text
	ErrNoTranscript = errors.New("no transcript found via available methods")
	// ErrSTTUnavailable means the speech-to-text engine could not be initialized
	ErrSTTUnavailable = errors.New("speech-to-text engine unavailable")
)

// permanentMarkers are error message fragments that retrying cannot fix
var permanentMarkers = []string{
	"disabled",
	"not available",
	"no transcript",
	"private",
	"unavailable",
	"not found",
}

// IsPermanent reports whether err describes a condition that will not go
// away on retry: captions disabled, video gone or private, no transcript.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoTranscript) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
