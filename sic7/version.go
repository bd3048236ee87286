package main

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.Version=..."
var Version string
var Commit string

func init() {
	Cmd.AddCommand(versionCmd)
}

// getVersion returns the build-time version, falling back to git describe.
func getVersion() string {
	if Version != "" {
		return Version
	}

	out, err := exec.Command("git", "describe", "--always", "--tags", "--dirty").Output()
	if err == nil {
		return strings.TrimSpace(string(out))
	}

	if Commit != "" {
		return Commit
	}
	return "unknown"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(getVersion())
	},
}
