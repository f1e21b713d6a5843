package export

import (
	"fmt"
	"io"

	"github.com/iksnae/libra-session/internal"
)

// Exporter defines the interface for all thread export formats
type Exporter interface {
	Export(thread *internal.Thread, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "txt", "text":
		return &TextExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: txt, jsonl, md, yaml, json)", format)
	}
}

// FileName returns the output file name of thread for exporter
func FileName(thread *internal.Thread, exporter Exporter) string {
	name := internal.ExportFileName(thread)
	return name[:len(name)-len(".txt")] + "." + exporter.Extension()
}
