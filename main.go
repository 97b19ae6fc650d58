package main

import "deckhand/cmd"

// Injected at build time via -ldflags.
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

func main() {
	cmd.Execute(buildVersion, buildCommit, buildDate)
}
