package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/digestbot/internal"
)

// resolveContent turns a video id, YouTube URL or article URL into a title
// and its transcript or article text
func resolveContent(cmd *cobra.Command, app *internal.App, arg string) (internal.ParsedArg, string, string, error) {
	target := internal.ParseTarget(arg)
	if !target.IsValid() {
		return target, "", "", fmt.Errorf("'%s' doesn't look like a YouTube video or an article URL", arg)
	}

	title, text, err := app.Content(cmd.Context(), target)
	if err != nil {
		return target, "", "", err
	}
	return target, title, text, nil
}
