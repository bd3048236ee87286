package debug

import (
	"os"
	"path/filepath"
	"strings"
)

var debuggerEnv = []string{"VSCODE_DEBUG_MODE", "DELVE_DEBUGGER"}

// IsDebuggerAttached reports whether the program looks like it runs under Delve
// or the VS Code debugger, in which case command timeouts only get in the way.
func IsDebuggerAttached() bool {
	for _, name := range debuggerEnv {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return strings.Contains(filepath.Base(os.Args[0]), "__debug_bin")
}
