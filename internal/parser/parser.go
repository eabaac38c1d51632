// Package parser turns raw STIG checklist files into normalized findings.
//
// Two vendor container formats are supported: the legacy .ckl XML
// checklist and the newer .cklb JSON checklist. Each format is decoded
// into its own typed structs and mapped through a small adapter into the
// canonical models.Finding shape, so format divergence stays inside this
// package.
package parser

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/stigward/stigward/internal/models"
)

// Parse converts raw checklist bytes into normalized findings. The
// filename is used only to infer the container format; when the suffix is
// inconclusive the content itself is sniffed. An empty checklist yields an
// empty slice, not an error.
func Parse(content []byte, filename string) ([]models.Finding, error) {
	switch detectFormat(content, filename) {
	case formatCKL:
		return parseCKL(content, filename)
	case formatCKLB:
		return parseCKLB(content, filename)
	default:
		return nil, NewUnsupportedFormatError(filename)
	}
}

type format int

const (
	formatUnknown format = iota
	formatCKL
	formatCKLB
)

// detectFormat infers the container format from the filename suffix,
// falling back to sniffing the first non-space byte.
func detectFormat(content []byte, filename string) format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cklb":
		return formatCKLB
	case ".ckl", ".xml":
		return formatCKL
	}

	trimmed := bytes.TrimLeft(content, " \t\r\n")
	if len(trimmed) == 0 {
		return formatUnknown
	}
	switch trimmed[0] {
	case '<':
		return formatCKL
	case '{':
		return formatCKLB
	default:
		return formatUnknown
	}
}
