package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	schemaarchive "github.com/jemviewer/plotrec/core/schema/v1/archive"
	"github.com/jemviewer/plotrec/core/schema/validate"
)

const maxEntryBytes = int64(256 * 1024 * 1024)

// BlobInfo describes one entry of the inner data archive.
type BlobInfo struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

type InspectResult struct {
	Descriptor schemaarchive.Descriptor `json:"descriptor"`
	Blobs      []BlobInfo               `json:"blobs"`
}

// Inspect opens a container and returns its validated descriptor plus the
// inner archive's blob inventory.
func Inspect(path string) (InspectResult, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return InspectResult{}, fmt.Errorf("open container: %w", err)
	}
	defer func() { _ = reader.Close() }()

	descriptorBytes, err := readEntry(&reader.Reader, schemaarchive.DescriptorFileName)
	if err != nil {
		return InspectResult{}, err
	}
	if err := validate.ValidateJSON(schemaarchive.SchemaJSON, descriptorBytes); err != nil {
		return InspectResult{}, fmt.Errorf("descriptor invalid: %w", err)
	}
	var descriptor schemaarchive.Descriptor
	if err := json.Unmarshal(descriptorBytes, &descriptor); err != nil {
		return InspectResult{}, fmt.Errorf("parse descriptor: %w", err)
	}

	dataBytes, err := readEntry(&reader.Reader, schemaarchive.DataArchiveName)
	if err != nil {
		return InspectResult{}, err
	}
	inner, err := zip.NewReader(bytes.NewReader(dataBytes), int64(len(dataBytes)))
	if err != nil {
		return InspectResult{}, fmt.Errorf("open data archive: %w", err)
	}
	blobs := make([]BlobInfo, 0, len(inner.File))
	for _, entry := range inner.File {
		blobs = append(blobs, BlobInfo{Key: entry.Name, Size: int64(entry.UncompressedSize64)})
	}
	return InspectResult{Descriptor: descriptor, Blobs: blobs}, nil
}

// ReadBlob extracts one blob payload from a container by key.
func ReadBlob(path, key string) ([]byte, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	defer func() { _ = reader.Close() }()

	dataBytes, err := readEntry(&reader.Reader, schemaarchive.DataArchiveName)
	if err != nil {
		return nil, err
	}
	inner, err := zip.NewReader(bytes.NewReader(dataBytes), int64(len(dataBytes)))
	if err != nil {
		return nil, fmt.Errorf("open data archive: %w", err)
	}
	return readEntry(inner, key)
}

func readEntry(reader *zip.Reader, name string) ([]byte, error) {
	for _, entry := range reader.File {
		if entry.Name != name {
			continue
		}
		opened, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", name, err)
		}
		defer func() { _ = opened.Close() }()
		content, err := io.ReadAll(io.LimitReader(opened, maxEntryBytes))
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("container missing required entry %s", name)
}
