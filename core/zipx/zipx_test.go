package zipx

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestWriteDeterministicZipRoundTrip(test *testing.T) {
	files := []File{
		{Path: "notebook.json", Data: []byte(`{"version":"3.0"}`), Mode: 0o644},
		{Path: "clipboard/data.npz", Data: []byte{0x50, 0x4b}, Mode: 0o644},
	}
	var buffer bytes.Buffer
	if err := WriteDeterministicZip(&buffer, files); err != nil {
		test.Fatalf("write zip: %v", err)
	}
	reader, err := zip.NewReader(bytes.NewReader(buffer.Bytes()), int64(buffer.Len()))
	if err != nil {
		test.Fatalf("open zip: %v", err)
	}
	if len(reader.File) != 2 {
		test.Fatalf("expected 2 entries, got %d", len(reader.File))
	}
	for i, want := range files {
		entry := reader.File[i]
		if entry.Name != want.Path {
			test.Fatalf("entry %d path mismatch: %s", i, entry.Name)
		}
		opened, err := entry.Open()
		if err != nil {
			test.Fatalf("open entry %s: %v", entry.Name, err)
		}
		content, err := io.ReadAll(opened)
		_ = opened.Close()
		if err != nil {
			test.Fatalf("read entry %s: %v", entry.Name, err)
		}
		if !bytes.Equal(content, want.Data) {
			test.Fatalf("entry %s content mismatch", entry.Name)
		}
	}
}

func TestWriteDeterministicZipStableBytes(test *testing.T) {
	files := []File{{Path: "a.txt", Data: []byte("stable"), Mode: 0o644}}
	var first, second bytes.Buffer
	if err := WriteDeterministicZip(&first, files); err != nil {
		test.Fatalf("first write: %v", err)
	}
	if err := WriteDeterministicZip(&second, files); err != nil {
		test.Fatalf("second write: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		test.Fatalf("zip bytes differ across identical writes")
	}
}
