package viewer

import (
	"fmt"
	"path/filepath"
	"testing"

	coreerrors "github.com/jemviewer/plotrec/core/errors"
)

func noLookup(string) (string, error) {
	return "", fmt.Errorf("not found")
}

func TestResolveDarwinSystemApplications(test *testing.T) {
	app := filepath.Join("/Applications", "JEMViewer3.app")
	getenv := func(string) string { return "/home/user" }
	exists := func(path string) bool { return path == app }

	command, err := resolve("darwin", getenv, exists, noLookup, "plot.jem3", Options{})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if command.Path != "open" {
		test.Fatalf("darwin launch must go through open, got %s", command.Path)
	}
	if command.Args[0] != "-a" || command.Args[1] != app || command.Args[2] != "plot.jem3" {
		test.Fatalf("unexpected args: %v", command.Args)
	}
}

func TestResolveDarwinFallsBackToHomeApplications(test *testing.T) {
	home := filepath.Join("/home/user", "Applications", "JEMViewer3.app")
	getenv := func(key string) string {
		if key == "HOME" {
			return "/home/user"
		}
		return ""
	}
	exists := func(path string) bool { return path == home }

	command, err := resolve("darwin", getenv, exists, noLookup, "plot.jem3", Options{})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if command.Args[1] != home {
		test.Fatalf("expected home install %s, got %v", home, command.Args)
	}
}

func TestResolveWindowsCandidates(test *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "ProgramFiles":
			return `C:\Program Files`
		case "ProgramFiles(x86)":
			return `C:\Program Files (x86)`
		case "LOCALAPPDATA":
			return `C:\Users\user\AppData\Local`
		}
		return ""
	}

	for _, install := range []string{
		filepath.Join(`C:\Program Files`, "JEMViewer3", "JEMViewer3.exe"),
		filepath.Join(`C:\Program Files (x86)`, "JEMViewer3", "JEMViewer3.exe"),
		filepath.Join(`C:\Users\user\AppData\Local`, "JEMViewer3", "JEMViewer3.exe"),
	} {
		exists := func(path string) bool { return path == install }
		command, err := resolve("windows", getenv, exists, noLookup, "plot.jem3", Options{})
		if err != nil {
			test.Fatalf("resolve %s: %v", install, err)
		}
		if command.Path != install || command.Args[0] != "plot.jem3" {
			test.Fatalf("unexpected command for %s: %+v", install, command)
		}
	}
}

func TestResolveHonorsExplicitOverride(test *testing.T) {
	exists := func(string) bool { return false }
	command, err := resolve("darwin", func(string) string { return "" }, exists, noLookup, "plot.jem3", Options{AppPath: "/opt/JEMViewer3.app"})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if command.Args[1] != "/opt/JEMViewer3.app" {
		test.Fatalf("override ignored: %v", command.Args)
	}
}

func TestResolveLinuxUsesPathLookup(test *testing.T) {
	look := func(name string) (string, error) {
		if name != "jemviewer3" {
			return "", fmt.Errorf("not found")
		}
		return "/usr/local/bin/jemviewer3", nil
	}
	command, err := resolve("linux", func(string) string { return "" }, func(string) bool { return false }, look, "plot.jem3", Options{})
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if command.Path != "/usr/local/bin/jemviewer3" {
		test.Fatalf("unexpected path %s", command.Path)
	}
}

func TestResolveMissingInstallFails(test *testing.T) {
	_, err := resolve("darwin", func(string) string { return "" }, func(string) bool { return false }, noLookup, "plot.jem3", Options{})
	if err == nil {
		test.Fatalf("expected missing-install error")
	}
	if coreerrors.CategoryOf(err) != coreerrors.CategoryDependencyMissing {
		test.Fatalf("expected dependency_missing, got %q", coreerrors.CategoryOf(err))
	}
}

func TestResolveUnsupportedPlatformFails(test *testing.T) {
	_, err := resolve("plan9", func(string) string { return "" }, func(string) bool { return false }, noLookup, "plot.jem3", Options{})
	if err == nil {
		test.Fatalf("expected unsupported-platform error")
	}
	if coreerrors.CategoryOf(err) != coreerrors.CategoryDependencyMissing {
		test.Fatalf("expected dependency_missing, got %q", coreerrors.CategoryOf(err))
	}
	if coreerrors.CodeOf(err) != "viewer_platform" {
		test.Fatalf("expected viewer_platform code, got %q", coreerrors.CodeOf(err))
	}
}
