// Package viewer locates and launches the JEMViewer3 desktop application
// for an exported container. Discovery is per-OS candidate probing; a
// missing or unsupported viewer is a fatal, explicit diagnostic rather than
// a silent no-op.
package viewer

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	coreerrors "github.com/jemviewer/plotrec/core/errors"
)

const AppName = "JEMViewer3"

type Options struct {
	// AppPath overrides candidate probing with an explicit installation.
	AppPath string
	Logger  *zap.Logger
}

// Command is a resolved launch invocation, kept separate from execution so
// resolution is testable without spawning processes.
type Command struct {
	Path string
	Args []string
}

// Resolve finds the viewer installation for the current platform and builds
// the launch command for archivePath.
func Resolve(archivePath string, options Options) (Command, error) {
	return resolve(runtime.GOOS, os.Getenv, fileExists, exec.LookPath, archivePath, options)
}

// Launch starts the viewer detached on archivePath.
func Launch(archivePath string, options Options) error {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	command, err := Resolve(archivePath, options)
	if err != nil {
		return err
	}
	logger.Info("launching viewer",
		zap.String("command", command.Path),
		zap.Strings("args", command.Args))
	// #nosec G204 -- command path comes from fixed candidates or explicit config.
	process := exec.Command(command.Path, command.Args...)
	if err := process.Start(); err != nil {
		return coreerrors.Wrap(fmt.Errorf("start %s: %w", AppName, err),
			coreerrors.CategoryDependencyMissing, "viewer_start",
			fmt.Sprintf("check the %s installation is runnable", AppName), false)
	}
	return nil
}

func resolve(goos string, getenv func(string) string, exists func(string) bool, look func(string) (string, error), archivePath string, options Options) (Command, error) {
	switch goos {
	case "darwin":
		app := options.AppPath
		if app == "" {
			app = firstExisting(exists,
				filepath.Join("/Applications", AppName+".app"),
				filepath.Join(getenv("HOME"), "Applications", AppName+".app"),
			)
		}
		if app == "" {
			return Command{}, notInstalled(goos)
		}
		return Command{Path: "open", Args: []string{"-a", app, archivePath}}, nil
	case "windows":
		app := options.AppPath
		if app == "" {
			app = firstExisting(exists,
				filepath.Join(getenv("ProgramFiles"), AppName, AppName+".exe"),
				filepath.Join(getenv("ProgramFiles(x86)"), AppName, AppName+".exe"),
				filepath.Join(getenv("LOCALAPPDATA"), AppName, AppName+".exe"),
			)
		}
		if app == "" {
			return Command{}, notInstalled(goos)
		}
		return Command{Path: app, Args: []string{archivePath}}, nil
	case "linux":
		if options.AppPath != "" {
			return Command{Path: options.AppPath, Args: []string{archivePath}}, nil
		}
		if binary, err := look("jemviewer3"); err == nil {
			return Command{Path: binary, Args: []string{archivePath}}, nil
		}
		return Command{}, notInstalled(goos)
	default:
		return Command{}, coreerrors.Wrap(
			fmt.Errorf("no %s launch strategy for %s", AppName, goos),
			coreerrors.CategoryDependencyMissing, "viewer_platform",
			"open the exported container on a supported desktop platform", false)
	}
}

func notInstalled(goos string) error {
	return coreerrors.Wrap(
		fmt.Errorf("%s installation not found on %s", AppName, goos),
		coreerrors.CategoryDependencyMissing, "viewer_missing",
		fmt.Sprintf("install %s or set the viewer app_path in the project config", AppName), false)
}

func firstExisting(exists func(string) bool, candidates ...string) string {
	for _, candidate := range candidates {
		if exists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
