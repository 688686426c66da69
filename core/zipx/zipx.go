package zipx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"
)

// File is one entry written into a deterministic zip archive.
type File struct {
	Path string
	Data []byte
	Mode os.FileMode
}

// deterministicTimestamp keeps archive bytes stable across repeated exports
// of identical content.
var deterministicTimestamp = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// WriteDeterministicZip writes entries in the order given, with fixed
// timestamps and deflate compression.
func WriteDeterministicZip(writer io.Writer, files []File) error {
	zipWriter := zip.NewWriter(writer)
	for _, file := range files {
		header := &zip.FileHeader{
			Name:     file.Path,
			Method:   zip.Deflate,
			Modified: deterministicTimestamp,
		}
		header.SetMode(file.Mode)
		entry, err := zipWriter.CreateHeader(header)
		if err != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("create zip entry %s: %w", file.Path, err)
		}
		if _, err := entry.Write(file.Data); err != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("write zip entry %s: %w", file.Path, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}
