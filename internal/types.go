package internal

import (
	"fmt"
	"net/url"
	"strings"
)

// ContentType represents what a command line target points at
type ContentType int

const (
	ContentTypeUnknown ContentType = iota
	ContentTypeVideo
	ContentTypeArticle
)

// String returns a human-readable representation of the content type
func (ct ContentType) String() string {
	switch ct {
	case ContentTypeVideo:
		return "video"
	case ContentTypeArticle:
		return "article"
	default:
		return "unknown"
	}
}

// ParsedArg represents the result of parsing a command line argument
type ParsedArg struct {
	Type ContentType
	Raw  string
	URL  string
	ID   string
}

// IsValid reports whether the argument names a video or an article
func (p ParsedArg) IsValid() bool {
	return p.Type != ContentTypeUnknown
}

func (p ParsedArg) String() string {
	return fmt.Sprintf("ParsedArg{type=%s, id=%s, url=%s}", p.Type, p.ID, p.URL)
}

// ParseTarget classifies a bare video id, a YouTube URL or any other http(s)
// URL, which is treated as an article
func ParseTarget(arg string) ParsedArg {
	arg = strings.TrimSpace(arg)
	parsed := ParsedArg{Raw: arg}

	if IsValidYouTubeID(arg) {
		parsed.Type = ContentTypeVideo
		parsed.ID = arg
		parsed.URL = VideoURL(arg)
		return parsed
	}

	u, err := url.Parse(arg)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return parsed
	}

	if videoID, err := getVideoID(arg); err == nil {
		parsed.Type = ContentTypeVideo
		parsed.ID = videoID
		parsed.URL = VideoURL(videoID)
		return parsed
	}
	if isYouTubeHost(u.Host) {
		return parsed
	}

	parsed.Type = ContentTypeArticle
	parsed.ID = arg
	parsed.URL = arg
	return parsed
}
