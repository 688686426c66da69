// Package archive assembles a session's recorded state into one
// distributable .jem3 container: a descriptor at the top level and the
// compressed blob store at clipboard/data.npz.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	coreerrors "github.com/jemviewer/plotrec/core/errors"
	"github.com/jemviewer/plotrec/core/fsx"
	"github.com/jemviewer/plotrec/core/jcs"
	schemaarchive "github.com/jemviewer/plotrec/core/schema/v1/archive"
	"github.com/jemviewer/plotrec/core/schema/validate"
	"github.com/jemviewer/plotrec/core/session"
	"github.com/jemviewer/plotrec/core/zipx"
)

const (
	// ContainerExtension is appended to destinations that carry no
	// extension of their own.
	ContainerExtension = ".jem3"

	setupDescription = "Setup & Initialization"
	mainDescription  = "Generated Operations"
)

// LoaderPreamble defines the two loader capabilities generated expressions
// rely on: a by-key numeric-array loader and a by-key delimited-text
// loader. It runs in the consumer, which provides clipboard().
const LoaderPreamble = `import pandas as pd
import datetime
import numpy as np
import io
import zipfile
from matplotlib.gridspec import GridSpec, GridSpecFromSubplotSpec

try:
    _archive = zipfile.ZipFile(clipboard("data.npz"))
except Exception as e:
    print(f"Warning: could not open data.npz: {e}")
    _archive = None

def _load_npy(key):
    return np.load(io.BytesIO(_archive.read(key)))

def _load_csv(key, **kwargs):
    return pd.read_csv(io.BytesIO(_archive.read(key)), **kwargs)
`

type ExportResult struct {
	Path             string
	Descriptor       schemaarchive.Descriptor
	DescriptorDigest string
	BlobCount        int
}

// Sections returns the two code sections a consumer replays: the loader
// preamble concatenated with the setup log, and the main log verbatim.
func Sections(sess *session.Session) (setupText, mainText string) {
	setupText = LoaderPreamble
	if setup := sess.SetupLog(); len(setup) > 0 {
		setupText += "\n" + strings.Join(setup, "\n")
	}
	mainText = strings.Join(sess.MainLog(), "\n")
	return setupText, mainText
}

// BuildDescriptor builds the container manifest from session state.
func BuildDescriptor(sess *session.Session, createdAt time.Time) schemaarchive.Descriptor {
	setupText, mainText := Sections(sess)
	return schemaarchive.Descriptor{
		Version: schemaarchive.FormatVersion,
		Created: createdAt.UTC().Format("2006-01-02T15:04:05"),
		Cells: []schemaarchive.Cell{
			{Code: setupText, Description: setupDescription, Expanded: false},
			{Code: mainText, Description: mainDescription, Expanded: true},
		},
		Addons: []any{},
	}
}

// Export packages the session into a container at destination. Export is a
// pure read of session state; failures here are fatal, since a silently
// partial container would be an undetectable corruption.
func Export(sess *session.Session, destination string) (ExportResult, error) {
	normalizedPath, err := normalizeDestination(destination)
	if err != nil {
		return ExportResult{}, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "export_destination", "pass a writable file path for the container", false)
	}

	descriptor := BuildDescriptor(sess, sess.Now())
	descriptorBytes, err := json.MarshalIndent(descriptor, "", "    ")
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode descriptor: %w", err)
	}
	descriptorBytes = append(descriptorBytes, '\n')
	if err := validate.ValidateJSON(schemaarchive.SchemaJSON, descriptorBytes); err != nil {
		return ExportResult{}, fmt.Errorf("descriptor invalid: %w", err)
	}
	digest, err := jcs.DigestJCS(descriptorBytes)
	if err != nil {
		return ExportResult{}, fmt.Errorf("digest descriptor: %w", err)
	}

	dataArchive, blobCount, err := buildDataArchive(sess)
	if err != nil {
		return ExportResult{}, fmt.Errorf("build data archive: %w", err)
	}

	files := []zipx.File{
		{Path: schemaarchive.DescriptorFileName, Data: descriptorBytes, Mode: 0o644},
		{Path: schemaarchive.DataArchiveName, Data: dataArchive, Mode: 0o644},
	}
	var container bytes.Buffer
	if err := zipx.WriteDeterministicZip(&container, files); err != nil {
		return ExportResult{}, fmt.Errorf("write container: %w", err)
	}

	dir := filepath.Dir(normalizedPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ExportResult{}, coreerrors.Wrap(fmt.Errorf("create container directory: %w", err), coreerrors.CategoryIOFailure, "export_mkdir", "check the destination directory is creatable", false)
		}
	}
	if err := fsx.WriteFileAtomic(normalizedPath, container.Bytes(), 0o600); err != nil {
		return ExportResult{}, coreerrors.Wrap(fmt.Errorf("write container: %w", err), coreerrors.CategoryIOFailure, "export_write", "check the destination is writable", false)
	}

	return ExportResult{
		Path:             normalizedPath,
		Descriptor:       descriptor,
		DescriptorDigest: digest,
		BlobCount:        blobCount,
	}, nil
}

// buildDataArchive compresses the blob store into the inner zip, one named
// entry per blob key in storage order.
func buildDataArchive(sess *session.Session) ([]byte, int, error) {
	keys := sess.BlobKeys()
	files := make([]zipx.File, 0, len(keys))
	for _, key := range keys {
		payload, ok := sess.Blob(key)
		if !ok {
			return nil, 0, fmt.Errorf("blob %q listed but missing", key)
		}
		files = append(files, zipx.File{Path: key, Data: payload, Mode: 0o644})
	}
	var buffer bytes.Buffer
	if err := zipx.WriteDeterministicZip(&buffer, files); err != nil {
		return nil, 0, err
	}
	return buffer.Bytes(), len(files), nil
}

func normalizeDestination(destination string) (string, error) {
	trimmed := strings.TrimSpace(destination)
	if trimmed == "" {
		return "", fmt.Errorf("container destination is required")
	}
	if filepath.Ext(trimmed) == "" {
		trimmed += ContainerExtension
	}
	return filepath.Clean(trimmed), nil
}
