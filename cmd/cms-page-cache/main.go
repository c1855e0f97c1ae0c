// Command cms-page-cache serves page-scoped CMS content from an in-memory
// cache and exposes cache administration over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
