package recorderconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(test *testing.T, content string) string {
	test.Helper()
	path := filepath.Join(test.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		test.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesAndNormalizes(test *testing.T) {
	path := writeConfig(test, `
viewer:
  app_path: "  /opt/JEMViewer3.app  "
track:
  extra_exclude:
    - "  twinx  "
    - ""
    - "secondary_.*"
logging:
  verbose: true
`)
	configuration, err := Load(path, false)
	if err != nil {
		test.Fatalf("load: %v", err)
	}
	if configuration.Viewer.AppPath != "/opt/JEMViewer3.app" {
		test.Fatalf("app_path not trimmed: %q", configuration.Viewer.AppPath)
	}
	if len(configuration.Track.ExtraExclude) != 2 {
		test.Fatalf("empty patterns must be dropped: %v", configuration.Track.ExtraExclude)
	}
	if configuration.Track.ExtraExclude[0] != "twinx" || configuration.Track.ExtraExclude[1] != "secondary_.*" {
		test.Fatalf("unexpected patterns: %v", configuration.Track.ExtraExclude)
	}
	if !configuration.Logging.Verbose {
		test.Fatalf("verbose flag lost")
	}
}

func TestLoadMissingAllowed(test *testing.T) {
	configuration, err := Load(filepath.Join(test.TempDir(), "absent.yaml"), true)
	if err != nil {
		test.Fatalf("allowMissing must yield defaults: %v", err)
	}
	if configuration.Viewer.AppPath != "" || len(configuration.Track.ExtraExclude) != 0 {
		test.Fatalf("expected zero config, got %+v", configuration)
	}
}

func TestLoadMissingRejected(test *testing.T) {
	if _, err := Load(filepath.Join(test.TempDir(), "absent.yaml"), false); err == nil {
		test.Fatalf("missing config must fail when not allowed")
	}
}

func TestLoadEmptyFileYieldsDefaults(test *testing.T) {
	path := writeConfig(test, "   \n")
	configuration, err := Load(path, false)
	if err != nil {
		test.Fatalf("load: %v", err)
	}
	if configuration.Logging.Verbose {
		test.Fatalf("expected zero config")
	}
}

func TestLoadRejectsMalformedYAML(test *testing.T) {
	path := writeConfig(test, "viewer: [unterminated")
	if _, err := Load(path, false); err == nil {
		test.Fatalf("malformed yaml must fail")
	}
}

func TestLoadRequiresPath(test *testing.T) {
	if _, err := Load("   ", true); err == nil {
		test.Fatalf("blank path must fail")
	}
}
