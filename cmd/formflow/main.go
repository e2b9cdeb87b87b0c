// Command formflow serves YAML-defined form wizards over HTTP and inspects
// wizard definitions.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "formflow: .env not loaded:", err)
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
