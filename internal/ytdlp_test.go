package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSRT(t *testing.T) {
	content := "1\r\n00:00:01,000 --> 00:00:03,500\r\nHello\r\nthere\r\n\r\n" +
		"2\n00:01:00,250 --> 00:01:02,000\nSecond line\n\n" +
		"3\n00:01:03,000 --> 00:01:04,000\n\n"

	segments := parseSRT(content)
	require.Len(t, segments, 2)

	assert.Equal(t, "Hello there", segments[0].Text)
	assert.InDelta(t, 1.0, segments[0].Start, 0.001)
	assert.InDelta(t, 2.5, segments[0].Duration, 0.001)

	assert.Equal(t, "Second line", segments[1].Text)
	assert.InDelta(t, 60.25, segments[1].Start, 0.001)
}

func TestParseSRTTimestamp(t *testing.T) {
	assert.InDelta(t, 3723.5, parseSRTTimestamp("01:02:03,500"), 0.001)
	assert.Zero(t, parseSRTTimestamp("garbage"))
}

func TestRemoveDuplicates(t *testing.T) {
	segments := []Segment{
		{Text: "we are"},
		{Text: "we are going"},
		{Text: "to the park"},
		{Text: "to the park"},
		{Text: "tomorrow"},
	}
	got := removeDuplicates(segments)
	assert.Equal(t, "we are to the park tomorrow", JoinSegments(got))
}

func TestSplitSubtitleName(t *testing.T) {
	id, lang, ok := splitSubtitleName("dQw4w9WgXcQ.zh-TW.srt")
	require.True(t, ok)
	assert.Equal(t, "dQw4w9WgXcQ", id)
	assert.Equal(t, "zh-TW", lang)

	_, _, ok = splitSubtitleName("noext.srt")
	assert.False(t, ok)
}

func TestTracksFromInfo(t *testing.T) {
	info := &ytInfo{
		Subtitles: map[string][]ytSubFormat{
			"en":        {{Ext: "vtt", Name: "English"}},
			"live_chat": {{Ext: "json"}},
		},
		AutomaticCaptions: map[string][]ytSubFormat{
			"ja":    {{Ext: "vtt", URL: "https://example.com/api/timedtext?lang=ja", Name: "Japanese"}},
			"zh-TW": {{Ext: "vtt", URL: "https://example.com/api/timedtext?lang=ja&tlang=zh-TW"}},
			"de":    {{Ext: "vtt", URL: "https://example.com/api/timedtext?lang=ja&tlang=de"}},
		},
	}

	list := tracksFromInfo("vid", info)
	require.Len(t, list.Tracks, 2)

	assert.Equal(t, "en", list.Tracks[0].Language)
	assert.False(t, list.Tracks[0].Generated)
	assert.Equal(t, "English", list.Tracks[0].Name)

	assert.Equal(t, "ja", list.Tracks[1].Language)
	assert.True(t, list.Tracks[1].Generated)
	assert.Equal(t, []string{"de", "zh-TW"}, list.Tracks[1].Translations)
	assert.True(t, list.Tracks[1].Translatable("zh-TW"))
}
