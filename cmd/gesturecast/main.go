package main

import (
	"os"

	"github.com/ayusman/gesturecast/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
