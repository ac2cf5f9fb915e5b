package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/hot-reload/hotreload"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var (
	ErrSettingsNotFound = errors.New("settings file not found")
	ErrSettingsExist    = errors.New("settings file already exists")
	ErrInvalidCommands  = errors.New("commands must be a non-empty list of non-empty strings")
	ErrInvalidSettings  = errors.New("invalid settings")
)

// Settings is the settings document of a project.
// The values are read by viper from the settings file or environment variables.
type Settings struct {
	WatchFileTypes []string `mapstructure:"watchFileTypes" json:"watchFileTypes" validate:"dive,required"`
	WatchPaths     []string `mapstructure:"watchPaths" json:"watchPaths" validate:"required,min=1,dive,required"`
	WatchDelay     int      `mapstructure:"watchDelay" json:"watchDelay" validate:"gte=0"`
	Commands       []string `mapstructure:"commands" json:"commands" validate:"required,min=1,dive,required"`
	ExcludePaths   []string `mapstructure:"excludePaths" json:"excludePaths,omitempty" validate:"dive,required"`
	FailFast       bool     `mapstructure:"failFast" json:"failFast,omitempty"`
}

// Delay returns WatchDelay as a duration
func (s *Settings) Delay() time.Duration {
	return time.Duration(s.WatchDelay) * time.Millisecond
}

// Validate checks the settings against their validation rules
func (s *Settings) Validate() error {
	validate := validator.New()
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.StructField() == "Commands" || strings.HasPrefix(fe.StructField(), "Commands[") {
			return fmt.Errorf("%w: %s failed on %q", ErrInvalidCommands, fe.Namespace(), fe.Tag())
		}
		problems = append(problems, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
	}

	return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
}

// DefaultPath returns the settings file of the working directory
func DefaultPath() string {
	return internal.DefaultSettingsFileName
}

// Load reads the settings file at path, or DefaultPath when path is empty.
// Missing fields take their defaults; the result is validated.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultPath()
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %s", ErrSettingsNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("failed to stat settings file %s: %w", path, err)
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidSettings, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}

	v.SetDefault("watchFileTypes", internal.DefaultWatchFileTypes)
	v.SetDefault("watchPaths", internal.DefaultWatchPaths)
	v.SetDefault("watchDelay", int(internal.DefaultWatchDelay/time.Millisecond))
	v.SetDefault("failFast", false)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv() // e.g. HOTRELOAD_WATCHDELAY=500, HOTRELOAD_COMMANDS='["make"]'

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidSettings, path, err)
	}

	raw := v.Get("commands")
	if line, ok := raw.(string); ok {
		// HOTRELOAD_COMMANDS='["make", "make test"]'
		cmds, err := decodeCommands(line)
		if err != nil {
			return nil, err
		}
		v.Set("commands", cmds)
		raw = cmds
	}

	// Weak decoding would turn numbers into strings, so the raw
	// command entries are checked before unmarshalling.
	if err := checkCommands(raw); err != nil {
		return nil, err
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("%w: unable to decode %s: %v", ErrInvalidSettings, path, err)
	}

	if len(settings.WatchFileTypes) == 0 {
		settings.WatchFileTypes = []string{internal.MatchAllFileTypes}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &settings, nil
}

// decodeCommands parses a string commands value, as set through the
// environment, which must hold a JSON array of strings
func decodeCommands(value string) ([]string, error) {
	var cmds []string
	if err := json.Unmarshal([]byte(value), &cmds); err != nil {
		return nil, fmt.Errorf("%w: a string value must be a JSON array of strings: %v", ErrInvalidCommands, err)
	}
	return cmds, nil
}

func checkCommands(raw interface{}) error {
	switch cmds := raw.(type) {
	case nil:
		return fmt.Errorf("%w: missing", ErrInvalidCommands)
	case []string:
		return nil
	case []interface{}:
		for i, c := range cmds {
			if _, ok := c.(string); !ok {
				return fmt.Errorf("%w: entry %d is %T", ErrInvalidCommands, i, c)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: got %T", ErrInvalidCommands, raw)
	}
}
