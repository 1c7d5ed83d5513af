package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePromptDefaultTemplate(t *testing.T) {
	pm := NewPromptManager(t.TempDir(), "")

	prompt, err := pm.CreatePrompt(PromptData{Title: "週報", Content: "逐字稿內容"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "《週報》")
	assert.Contains(t, prompt, "繁體中文")
	assert.Contains(t, prompt, "逐字稿內容")

	prompt, err = pm.CreatePrompt(PromptData{Content: "x"})
	require.NoError(t, err)
	assert.NotContains(t, prompt, "《")
}

func TestCreatePromptSources(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "prompt.txt"), []byte("dir: {{.Content}}"), 0644))

	prompt, err := NewPromptManager(configDir, "").CreatePrompt(PromptData{Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "dir: c", prompt)

	custom := filepath.Join(t.TempDir(), "custom.txt")
	require.NoError(t, os.WriteFile(custom, []byte("file: {{.Title}}"), 0644))
	prompt, err = NewPromptManager(configDir, custom).CreatePrompt(PromptData{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "file: t", prompt)

	prompt, err = NewPromptManager(configDir, "Summarize {{.Content}} briefly").CreatePrompt(PromptData{Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "Summarize c briefly", prompt)
}

func TestCreatePromptBadTemplate(t *testing.T) {
	_, err := NewPromptManager("", "broken {{.Content").CreatePrompt(PromptData{})
	assert.Error(t, err)
}
