package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// PromptData for template injection
type PromptData struct {
	Title   string
	URL     string
	Content string
}

// PromptManager handles loading and processing prompt templates
type PromptManager struct {
	promptFile   string
	promptString string
	configDir    string
}

// NewPromptManager creates a new prompt manager
func NewPromptManager(configDir, promptSetting string) *PromptManager {
	pm := &PromptManager{
		configDir: configDir,
	}

	// Configure prompt based on config setting
	if promptSetting != "" {
		if IsLikelyFilePath(promptSetting) && FileExists(promptSetting) {
			pm.promptFile = promptSetting
		} else {
			pm.promptString = promptSetting
		}
	}

	return pm
}

// CreatePrompt builds a summary prompt for content. The template comes from
// the prompt setting, then prompt.txt in the config directory, then the
// built-in default.
func (pm *PromptManager) CreatePrompt(data PromptData) (string, error) {
	tmplContent, err := pm.template()
	if err != nil {
		return "", err
	}
	return buildPromptFromTemplate(tmplContent, data)
}

func (pm *PromptManager) template() (string, error) {
	if pm.promptString != "" {
		return pm.promptString, nil
	}

	promptFile := pm.promptFile
	if promptFile == "" {
		promptFile = filepath.Join(pm.configDir, "prompt.txt")
		if !FileExists(promptFile) {
			content, err := defaultFS.ReadFile("prompt.txt")
			if err != nil {
				return "", fmt.Errorf("reading built-in prompt: %w", err)
			}
			return string(content), nil
		}
	}

	content, err := os.ReadFile(promptFile)
	if err != nil {
		return "", fmt.Errorf("reading prompt template: %w", err)
	}
	return string(content), nil
}

// buildPromptFromTemplate builds the AI prompt from template content
func buildPromptFromTemplate(templateContent string, data PromptData) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}

	return buf.String(), nil
}

// IsLikelyFilePath uses heuristics to determine if a string is likely a file path
func IsLikelyFilePath(s string) bool {
	// Check for common file path indicators
	if strings.Contains(s, "/") || strings.Contains(s, "\\") {
		return true
	}

	// Check for common file extensions
	if strings.Contains(s, ".txt") || strings.Contains(s, ".md") ||
		strings.Contains(s, ".template") || strings.Contains(s, ".tmpl") {
		return true
	}

	// If it's longer than 200 characters, it's likely a prompt string
	if len(s) > 200 {
		return false
	}

	// Default to treating as file path if it doesn't contain spaces and newlines
	return !strings.Contains(s, " ") && !strings.Contains(s, "\n")
}
