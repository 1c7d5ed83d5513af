package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	version = "dev" // set with -ldflags at release
	commit  = ""
	date    = ""
)

// buildVersion falls back to the module version when installed with go install
func buildVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the digestbot version",
	Annotations: map[string]string{skipConfig: ""},
	Run: func(cmd *cobra.Command, args []string) {
		out := "digestbot " + buildVersion()
		if commit != "" {
			out += fmt.Sprintf(" (commit %s, built %s)", commit, date)
		}
		fmt.Println(out)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
