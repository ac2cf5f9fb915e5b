package internal

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for the binary and version output
	DefaultAppName        = "hotreload"
	DefaultAppCMDShortCut = "hotreload"
	DefaultEnvPrefix      = "HOTRELOAD"

	// Settings document looked up in the working directory
	DefaultSettingsFileName = ".hotreload-settings.json"
	// Gitignore-style file read from the root of every watch path
	DefaultIgnoreFileName = ".hotreloadignore"

	// Watch defaults applied when the settings document omits them
	DefaultWatchDelay     = 200 * time.Millisecond
	DefaultWatchFileTypes = []string{"*"}
	DefaultWatchPaths     = []string{"."}

	// MatchAllFileTypes is the wildcard entry of watchFileTypes
	MatchAllFileTypes = "*"
)

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().
		Timestamp().
		Logger()
}
