package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		arg      string
		wantType ContentType
		wantID   string
	}{
		{"dQw4w9WgXcQ", ContentTypeVideo, "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", ContentTypeVideo, "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", ContentTypeVideo, "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", ContentTypeVideo, "dQw4w9WgXcQ"},
		{"https://www.youtube.com/@somechannel", ContentTypeUnknown, ""},
		{"https://blog.example.com/posts/1", ContentTypeArticle, "https://blog.example.com/posts/1"},
		{"ftp://example.com/file", ContentTypeUnknown, ""},
		{"hello world", ContentTypeUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got := ParseTarget(tt.arg)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, tt.wantType != ContentTypeUnknown, got.IsValid())
		})
	}
}

func TestParseTargetNormalizesVideoURL(t *testing.T) {
	got := ParseTarget("  https://m.youtube.com/watch?v=dQw4w9WgXcQ  ")
	assert.Equal(t, VideoURL("dQw4w9WgXcQ"), got.URL)
}
