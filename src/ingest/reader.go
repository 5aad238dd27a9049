// Package ingest reads Jenkins build directories: it discovers builds in a jobs
// tree and turns their console logs into sanitized line slices.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"buildtriage/src/logger"
	"buildtriage/src/sanitize"
)

// PostBuildMarker starts the post-build section of a Jenkins console log.
// Everything from this line onwards is ignored.
const PostBuildMarker = "[PostBuildScript] - Execution post build scripts."

// DefaultLogFiles are the log sources read for every build, relative to the build directory.
var DefaultLogFiles = []string{
	"log",
	"archive/artifacts/runcmd-bash.log",
	"archive/artifacts/deploy.sh.log",
}

// LogReader reads and normalizes the console logs of a build.
type LogReader struct {
	files  []string
	marker string
	logger logger.Logger
}

// NewLogReader creates a reader for the given sources. Empty arguments fall back to defaults.
func NewLogReader(files []string, marker string, log logger.Logger) *LogReader {
	if len(files) == 0 {
		files = DefaultLogFiles
	}
	if marker == "" {
		marker = PostBuildMarker
	}
	return &LogReader{files: files, marker: marker, logger: log}
}

// ReadBuild returns the concatenated lines of every source of the build in buildDir.
// Sources that are missing or unreadable contribute no lines.
func (r *LogReader) ReadBuild(buildDir string) []string {
	var lines []string
	for _, name := range r.files {
		src, err := r.ReadSource(filepath.Join(buildDir, filepath.FromSlash(name)))
		if err != nil {
			r.logger.Warn("[LogReader] Ignoring unreadable log %s: %v", name, err)
			continue
		}
		lines = append(lines, src...)
	}
	return lines
}

// ReadSource reads one log file, falling back to <path>.gz when path does not exist.
// A missing source yields no lines and no error.
func (r *LogReader) ReadSource(path string) ([]string, error) {
	data, err := readMaybeCompressed(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return SplitLines(Decode(data), r.marker), nil
}

func readMaybeCompressed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	f, err := os.Open(path + ".gz")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream %s.gz: %w", path, err)
	}
	defer zr.Close()

	data, err = io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s.gz: %w", path, err)
	}
	return data, nil
}

// Decode converts raw log bytes to text. A UTF-8 or UTF-16 byte order mark selects
// the encoding; invalid sequences become U+FFFD. Decoding never fails.
func Decode(data []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		out = data
	}
	return strings.ToValidUTF8(string(out), "\uFFFD")
}

// SplitLines splits text into sanitized lines and drops everything from the first
// line equal to marker onwards.
func SplitLines(text, marker string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	raw := strings.Split(text, "\n")

	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = sanitize.Line(l)
		if marker != "" && l == marker {
			break
		}
		lines = append(lines, l)
	}
	return lines
}

// ReadFile reads a small metadata file with gzip fallback. Missing files return fs.ErrNotExist.
func ReadFile(path string) ([]byte, error) {
	data, err := readMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil
}
