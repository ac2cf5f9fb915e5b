package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Default returns the settings written by WriteDefault
func Default() *Settings {
	return &Settings{
		WatchFileTypes: []string{"js", "ts", "css", "html"},
		WatchPaths:     []string{"."},
		WatchDelay:     200,
		Commands: []string{
			`echo "Changes Made!"`,
			`echo "Run your commands here."`,
		},
	}
}

// WriteDefault creates the default settings file at path. An existing
// file is only replaced when force is set; a directory never is.
func WriteDefault(path string, force bool) error {
	if path == "" {
		path = DefaultPath()
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return fmt.Errorf("%w: %s is a directory", ErrInvalidSettings, path)
	case err == nil && !force:
		return fmt.Errorf("%w: %s", ErrSettingsExist, path)
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("failed to stat settings file %s: %w", path, err)
	}

	// viper lowercases keys when writing, so the document is encoded directly
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode default settings: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", path, err)
	}

	return nil
}
