package archive

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"golang.org/x/text/encoding/charmap"
)

// Host systems recorded in the high byte of a zip CreatorVersion whose
// external attributes carry unix mode bits.
const (
	creatorUnix  = 3
	creatorMacOS = 19
)

// Entry is one archive member as seen by the filter.
type Entry struct {
	Name    string      // decoded name as stored in the archive
	Path    string      // sanitized relative path, OS separators
	Size    uint64      // declared uncompressed size
	IsDir   bool        // directory marker
	Mode    fs.FileMode // permission bits, meaningful when HasMode
	HasMode bool
}

// TopLevel returns the first component of the sanitized path.
func (e Entry) TopLevel() string {
	first, _, _ := strings.Cut(filepath.ToSlash(e.Path), "/")
	return first
}

// newEntry describes f. ok is false when the name cannot be turned into a
// relative path that stays inside the destination.
func newEntry(f *zip.File) (entry Entry, ok bool) {
	name := decodeName(f)
	entry = Entry{
		Name:  name,
		Size:  f.UncompressedSize64,
		IsDir: strings.HasSuffix(name, "/"),
	}

	if host := f.CreatorVersion >> 8; host == creatorUnix || host == creatorMacOS {
		if bits := f.ExternalAttrs >> 16; bits != 0 {
			entry.Mode = fs.FileMode(bits) & fs.ModePerm
			entry.HasMode = true
		}
	}

	entry.Path, ok = sanitizeName(name)
	return entry, ok
}

// decodeName returns the entry name as UTF-8. Names not flagged as UTF-8
// that are not valid UTF-8 were written in code page 437.
func decodeName(f *zip.File) string {
	if f.NonUTF8 && !utf8.ValidString(f.Name) {
		if decoded, err := charmap.CodePage437.NewDecoder().String(f.Name); err == nil {
			return decoded
		}
	}
	return f.Name
}

// sanitizeName converts an archive name into a relative path. It rejects
// absolute names, drive letters, NUL bytes and any ".." that climbs above
// the archive root. "." components and repeated separators are dropped.
func sanitizeName(name string) (string, bool) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", false
	}

	name = strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(name) || hasDriveLetter(name) {
		return "", false
	}

	var parts []string
	for _, part := range strings.Split(name, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(parts) == 0 {
				return "", false
			}
			parts = parts[:len(parts)-1]
		default:
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "", false
	}

	return filepath.Join(parts...), true
}

func hasDriveLetter(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
