package loader

import (
	"os"
	"path/filepath"
	"strings"
)

// Format represents a vocabulary file format.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatTiktoken
	FormatHuggingFace
	FormatGGUF
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatTiktoken:
		return "tiktoken"
	case FormatHuggingFace:
		return "HuggingFace"
	case FormatGGUF:
		return "GGUF"
	default:
		return "Unknown"
	}
}

// DetectFormat determines the format of path from its name. A directory is
// treated as a HuggingFace model directory holding tokenizer.json.
func DetectFormat(path string) Format {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return FormatHuggingFace
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tiktoken":
		return FormatTiktoken
	case ".json":
		return FormatHuggingFace
	case ".gguf":
		return FormatGGUF
	default:
		return FormatUnknown
	}
}
