package convert

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind selects the file family.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindStan
	KindSetup
)

func (k Kind) String() string {
	switch k {
	case KindStan:
		return "stan"
	case KindSetup:
		return "setup"
	default:
		return "unknown"
	}
}

// ParseKind accepts "stan" or "setup".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stan":
		return KindStan, nil
	case "setup":
		return KindSetup, nil
	}
	return KindUnknown, fmt.Errorf("%w: unknown kind %q", ErrUsage, s)
}

// Format is one of the three representations of a file.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatBinary
	FormatText
	FormatDocument
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "bin"
	case FormatText:
		return "c"
	case FormatDocument:
		return "json"
	default:
		return "unknown"
	}
}

// Ext returns the file extension for f, with the leading dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// ParseFormat accepts a format name or extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "bin", "binary":
		return FormatBinary, nil
	case "c", "text":
		return FormatText, nil
	case "json", "document":
		return FormatDocument, nil
	}
	return FormatUnknown, fmt.Errorf("%w: unknown format %q", ErrUsage, s)
}

// DetectFormat infers the format from a path's extension.
func DetectFormat(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return FormatUnknown, fmt.Errorf("%w: cannot infer format of %q", ErrUsage, path)
	}
	return ParseFormat(ext)
}

// DetectKind infers the file family from a path's base name.
func DetectKind(path string) Kind {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(base, "stan"):
		return KindStan
	case strings.Contains(base, "setup"):
		return KindSetup
	}
	return KindUnknown
}

// OutputPath replaces the extension of in with the one for to.
func OutputPath(in string, to Format) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + to.Ext()
}
