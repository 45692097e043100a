// Package testdata embeds recorded landmark sessions used by replay and end-to-end tests.
package testdata

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed recordings/*.json
var recordingsFS embed.FS

// Recording returns the raw JSON of a recorded session by name ("pan", "zoom", ...).
func Recording(name string) ([]byte, error) {
	data, err := recordingsFS.ReadFile("recordings/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return data, nil
}

// Recordings lists the names of all embedded sessions.
func Recordings() ([]string, error) {
	entries, err := fs.ReadDir(recordingsFS, "recordings")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}
