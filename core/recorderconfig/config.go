// Package recorderconfig loads per-project recorder defaults from
// .plotrec/config.yaml.
package recorderconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

const DefaultPath = ".plotrec/config.yaml"

type Config struct {
	Viewer  ViewerDefaults  `yaml:"viewer"`
	Track   TrackDefaults   `yaml:"track"`
	Logging LoggingDefaults `yaml:"logging"`
}

type ViewerDefaults struct {
	AppPath string `yaml:"app_path"`
}

type TrackDefaults struct {
	// ExtraExclude holds additional operation-name patterns excluded from
	// recording, appended to the built-in exclusion policy.
	ExtraExclude []string `yaml:"extra_exclude"`
}

type LoggingDefaults struct {
	Verbose bool `yaml:"verbose"`
}

func Load(path string, allowMissing bool) (Config, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Config{}, fmt.Errorf("recorder config path is required")
	}

	// #nosec G304 -- recorder config path is explicit local user input.
	content, err := os.ReadFile(trimmedPath)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read recorder config: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return Config{}, nil
	}

	var configuration Config
	if err := yaml.Unmarshal(content, &configuration); err != nil {
		return Config{}, fmt.Errorf("parse recorder config: %w", err)
	}
	configuration.normalize()
	return configuration, nil
}

func (configuration *Config) normalize() {
	configuration.Viewer.AppPath = strings.TrimSpace(configuration.Viewer.AppPath)
	patterns := make([]string, 0, len(configuration.Track.ExtraExclude))
	for _, pattern := range configuration.Track.ExtraExclude {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	configuration.Track.ExtraExclude = patterns
}
