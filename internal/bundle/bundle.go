// Package bundle packs the text sources of a generated unit tree into one
// marker-delimited file and unpacks such a file back into a directory.
//
// Each file is written as
//
//	<<START_FILE>> relative/path.cs
//	...content...
//	<<END_FILE>>
//
// Only project, source, config and JSON files are packed; build output
// directories are skipped. Content is kept byte for byte, except that a file
// without a final newline gains one, since the end marker must start a line.
package bundle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
)

// Bundle markers.
const (
	StartMarker = "<<START_FILE>>"
	EndMarker   = "<<END_FILE>>"
)

// Extensions lists the file extensions that are packed (lower-case).
var Extensions = []string{".csproj", ".cs", ".config", ".json"}

var skippedDirs = map[string]bool{"bin": true, "obj": true}

// Packer packs and unpacks bundles.
type Packer struct {
	fs     afs.Service
	logger *slog.Logger
}

// New creates a Packer. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Packer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Packer{fs: afs.New(), logger: logger}
}

// Include reports whether a file name has a packed extension.
func Include(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Pack writes every included file below dir to w, sorted by relative path.
// It returns the number of files written.
func (p *Packer) Pack(ctx context.Context, dir string, w io.Writer) (int, error) {
	objects, err := p.fs.List(ctx, dir, option.NewRecursive(true))
	if err != nil {
		return 0, fmt.Errorf("pack %s: %w", dir, err)
	}
	root := strings.TrimSuffix(url.Path(dir), "/")

	type entry struct {
		rel  string
		data []byte
	}
	var entries []entry
	for _, object := range objects {
		if object.IsDir() || !Include(object.Name()) {
			continue
		}
		rel := strings.TrimPrefix(url.Path(object.URL()), root+"/")
		if inSkippedDir(rel) {
			continue
		}
		data, err := p.fs.Download(ctx, object)
		if err != nil {
			return 0, fmt.Errorf("pack %s: %w", rel, err)
		}
		entries = append(entries, entry{rel: rel, data: data})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	bw := bufio.NewWriter(w)
	for _, e := range entries {
		p.logger.Debug("packing file", "path", e.rel)
		fmt.Fprintf(bw, "%s %s\n", StartMarker, e.rel)
		bw.Write(e.data)
		if len(e.data) > 0 && e.data[len(e.data)-1] != '\n' {
			bw.WriteByte('\n')
		}
		bw.WriteString(EndMarker + "\n")
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("pack %s: %w", dir, err)
	}
	return len(entries), nil
}

// Unpack reads a bundle from r and writes its files below dir. Lines outside
// a file block are ignored. Content lines keep their own line endings, so a
// CRLF file round-trips unchanged. It returns the relative paths written, in
// bundle order.
func (p *Packer) Unpack(ctx context.Context, r io.Reader, dir string) ([]string, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		written []string
		current string
		content strings.Builder
		inFile  bool
		lineNo  int
	)
	for {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return written, fmt.Errorf("unpack: %w", readErr)
		}
		if raw == "" && readErr == io.EOF {
			break
		}
		lineNo++
		line := strings.TrimRight(raw, "\r\n")
		switch {
		case !inFile:
			if rest, ok := strings.CutPrefix(line, StartMarker); ok {
				rel, err := cleanRel(strings.TrimSpace(rest))
				if err != nil {
					return written, fmt.Errorf("unpack line %d: %w", lineNo, err)
				}
				current = rel
				content.Reset()
				inFile = true
			}
		case line == EndMarker:
			target := filepath.Join(dir, filepath.FromSlash(current))
			if err := p.fs.Upload(ctx, target, file.DefaultFileOsMode, strings.NewReader(content.String())); err != nil {
				return written, fmt.Errorf("unpack %s: %w", current, err)
			}
			p.logger.Debug("unpacked file", "path", target)
			written = append(written, current)
			inFile = false
		default:
			content.WriteString(raw)
		}
		if readErr == io.EOF {
			break
		}
	}
	if inFile {
		return written, fmt.Errorf("unpack: file %q has no %s marker", current, EndMarker)
	}
	return written, nil
}

func cleanRel(rel string) (string, error) {
	rel = strings.ReplaceAll(rel, `\`, "/")
	if rel == "" || strings.HasPrefix(rel, "/") || (len(rel) > 1 && rel[1] == ':') {
		return "", fmt.Errorf("path %q is not relative", rel)
	}
	rel = path.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %q escapes the target directory", rel)
	}
	return rel, nil
}

func inSkippedDir(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if skippedDirs[strings.ToLower(dir)] {
			return true
		}
	}
	return false
}
