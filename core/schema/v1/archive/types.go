// Package archive defines the exported unit's descriptor: the manifest the
// consumer reads from notebook.json at the top of every .jem3 container.
package archive

import _ "embed"

const (
	// FormatVersion is the descriptor format understood by the consumer.
	FormatVersion = "3.0"

	// DescriptorFileName is the fixed top-level descriptor path inside the
	// container.
	DescriptorFileName = "notebook.json"

	// DataArchiveName is the fixed subpath of the data archive holding the
	// blob store.
	DataArchiveName = "clipboard/data.npz"
)

// Descriptor is the container manifest. Field names are the consumer's
// wire format and must not change.
type Descriptor struct {
	Version string `json:"version"`
	Created string `json:"created"`
	Cells   []Cell `json:"cells"`
	Addons  []any  `json:"addons"`
}

// Cell is one named section of replayable code.
type Cell struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Expanded    bool   `json:"expanded"`
}

//go:embed descriptor_schema.json
var SchemaJSON []byte
