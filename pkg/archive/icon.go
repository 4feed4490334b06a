// Package archive pulls preview icons out of zip-compatible payloads
// (.mcaddon packs are plain zip containers). Extraction is strictly
// best-effort: unreadable or corrupt archives yield no icon, never an error,
// so a bad payload can only suppress a preview.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
)

const (
	// maxEntries caps how many entries are inspected per archive, and
	// maxIconBytes caps the decompressed read of a candidate icon. Both
	// bound resource use against crafted archives.
	maxEntries   = 4096
	maxIconBytes = 8 << 20
)

// iconNames are matched case-insensitively against the base name of each
// entry, at any directory depth, in priority order.
var iconNames = []string{"icon_pack.png", "pack_icon.png"}

// ExtractIcon returns the decompressed bytes of the first embedded icon
// found in the archive, or (nil, false) when the archive has none or is not
// readable as a zip.
func ExtractIcon(data []byte) ([]byte, bool) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, false
	}

	for _, want := range iconNames {
		for i, f := range r.File {
			if i >= maxEntries {
				break
			}
			if !matchesIconName(f.Name, want) {
				continue
			}
			if icon, ok := readEntry(f); ok {
				return icon, true
			}
			// A matching but unreadable entry is skipped, not fatal.
		}
	}
	return nil, false
}

func matchesIconName(entryName, want string) bool {
	name := strings.ToLower(entryName)
	// Zip entries use forward slashes; tolerate backslashes anyway.
	name = strings.ReplaceAll(name, `\`, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name == want
}

func readEntry(f *zip.File) ([]byte, bool) {
	if f.UncompressedSize64 > maxIconBytes {
		return nil, false
	}
	rc, err := f.Open()
	if err != nil {
		return nil, false
	}
	defer rc.Close()

	// The declared uncompressed size is untrusted; enforce the cap on the
	// actual read as well.
	data, err := io.ReadAll(io.LimitReader(rc, maxIconBytes+1))
	if err != nil || len(data) > maxIconBytes {
		return nil, false
	}
	return data, true
}

// IsArchiveName reports whether a filename looks like an icon-bearing
// archive payload.
func IsArchiveName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".zip") || strings.HasSuffix(lower, ".mcaddon")
}
