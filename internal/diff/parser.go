package diff

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/reviewpilot/pkg/models"
)

// Parser splits raw unified diff output into per-file diffs.
type Parser struct{}

// NewParser creates a new diff parser.
func NewParser() *Parser {
	return &Parser{}
}

var filePathRe = regexp.MustCompile(`diff --git a/(.*) b/(.*)`)

// Parse splits a unified git diff into per-file FileDiffs, preserving the
// order files appear in the diff. Binary-looking files are dropped; their
// diffs cannot be reviewed as text. An empty diff yields nil, nil.
func (p *Parser) Parse(diffText string) ([]models.FileDiff, error) {
	if diffText == "" {
		return nil, nil
	}

	sections := p.splitByFile(diffText)

	result := make([]models.FileDiff, 0, len(sections))
	for _, section := range sections {
		matches := filePathRe.FindStringSubmatch(section)
		if len(matches) < 3 {
			return nil, fmt.Errorf("could not extract file path from diff section")
		}
		// The b/ side is the post-change path, which is also correct for
		// renames and deletions (git keeps the old name on the b/ side
		// for deletions).
		path := matches[2]

		if skipPath(path) || looksBinary(section) {
			continue
		}

		result = append(result, models.FileDiff{
			Path:   path,
			Diff:   section,
			Length: len(section),
		})
	}

	return result, nil
}

// splitByFile splits a unified diff on "diff --git" boundaries.
func (p *Parser) splitByFile(diffText string) []string {
	parts := strings.Split(diffText, "diff --git ")

	result := make([]string, 0, len(parts))
	for i, part := range parts {
		if i == 0 {
			// Leading prologue before the first file marker.
			continue
		}
		result = append(result, "diff --git "+part)
	}
	return result
}

// Binary file extensions never worth sending to a reviewer model.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".tif": true, ".tiff": true, ".webp": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
	".7z": true, ".rar": true, ".jar": true, ".war": true, ".class": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".bin": true, ".dat": true, ".o": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".ttf": true, ".woff": true, ".woff2": true, ".eot": true,
	".pyc": true, ".pyd": true, ".pyo": true,
}

func skipPath(path string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(path))]
}

// looksBinary checks a diff section for binary content: git's own marker,
// null bytes, or a high ratio of non-printable characters in a sample.
func looksBinary(content string) bool {
	if strings.Contains(content, "Binary files ") {
		return true
	}
	if strings.Contains(content, "\x00") {
		return true
	}

	sampleSize := 512
	if len(content) < sampleSize {
		sampleSize = len(content)
	}
	if sampleSize == 0 {
		return false
	}

	nonPrintable := 0
	for _, r := range content[:sampleSize] {
		if (r < 32 && r != 9 && r != 10 && r != 13) || r == 127 {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(sampleSize) > 0.3
}
