package main

import (
	"path/filepath"
	"testing"

	"github.com/jemviewer/plotrec/core/archive"
	"github.com/jemviewer/plotrec/core/session"
)

func exportedContainer(test *testing.T) string {
	test.Helper()
	sess, err := session.New(session.Options{})
	if err != nil {
		test.Fatalf("new session: %v", err)
	}
	test.Cleanup(sess.Reset)
	sess.AddLog("figs[0].clear()")
	result, err := archive.Export(sess, filepath.Join(test.TempDir(), "out.jem3"))
	if err != nil {
		test.Fatalf("export: %v", err)
	}
	return result.Path
}

func TestInspectCommandReadsContainer(test *testing.T) {
	command := InspectCmd{Path: exportedContainer(test), JSON: true}
	if err := command.Run(&Globals{}); err != nil {
		test.Fatalf("inspect: %v", err)
	}
}

func TestInspectCommandRejectsMissingFile(test *testing.T) {
	command := InspectCmd{Path: filepath.Join(test.TempDir(), "absent.jem3"), JSON: true}
	if err := command.Run(&Globals{}); err == nil {
		test.Fatalf("missing container must fail")
	}
}

func TestCodeCommandPrintsCells(test *testing.T) {
	command := CodeCmd{Path: exportedContainer(test)}
	if err := command.Run(&Globals{}); err != nil {
		test.Fatalf("code: %v", err)
	}
}

func TestVersionCommand(test *testing.T) {
	command := VersionCmd{}
	if err := command.Run(&Globals{}); err != nil {
		test.Fatalf("version: %v", err)
	}
}
