package constants

import (
	"bytes"
	"sort"
	"strings"
)

// MediaTypePDF is the only media type the pipeline accepts.
const MediaTypePDF = "application/pdf"

// pdfMagic is the byte prefix every PDF carries.
var pdfMagic = []byte("%PDF-")

// AllowedExtensions holds the allowed file extensions for filing ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// ExtensionList returns the allowed extensions in sorted order.
func ExtensionList() []string {
	exts := make([]string, 0, len(AllowedExtensions))
	for ext := range AllowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// LooksLikePDF reports whether the content starts with the PDF magic bytes.
func LooksLikePDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}
