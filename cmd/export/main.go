// Command export writes the static marketing site.
//
//	export --out dist --github-pages
package main

import (
	"os"

	"github.com/logicloom/logicloom/cmd/export/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
