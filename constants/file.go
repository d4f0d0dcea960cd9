package constants

import "strings"

// AllowedExtensions holds the file extensions picked up by watch mode.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Default paths used when nothing else is configured.
const (
	DefaultInputPath  = "input.pdf"
	DefaultOutputPath = "output.json"
)
