package internal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection reset by peer"), false},
		{errors.New("HTTP Error 429: Too Many Requests"), false},
		{errors.New("Transcripts are disabled for this video"), true},
		{errors.New("Video unavailable"), true},
		{errors.New("This is a private video"), true},
		{fmt.Errorf("wrapped: %w", ErrNoTranscript), true},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}
}
