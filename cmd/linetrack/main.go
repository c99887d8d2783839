// Command linetrack demonstrates line-status tracking for files under
// version control: it opens the given files as buffers, installs trackers
// for the eligible ones, and reports tracker state as the files change.
package main

import "os"

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
