package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/internal/server.go b/internal/server.go
index 83db48f..bf269f4 100644
--- a/internal/server.go
+++ b/internal/server.go
@@ -1,3 +1,4 @@
 package internal
+import "fmt"

 func main() {}
diff --git a/README.md b/README.md
index 83db48f..bf269f4 100644
--- a/README.md
+++ b/README.md
@@ -1 +1,2 @@
 # Project
+New line.
`

func TestParseSplitsPerFile(t *testing.T) {
	files, err := NewParser().Parse(sampleDiff)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "internal/server.go", files[0].Path)
	assert.Equal(t, "README.md", files[1].Path)

	// Each section keeps its own full diff text, including the header.
	assert.Contains(t, files[0].Diff, "diff --git a/internal/server.go")
	assert.Contains(t, files[0].Diff, `+import "fmt"`)
	assert.NotContains(t, files[0].Diff, "README.md")
	assert.Equal(t, len(files[0].Diff), files[0].Length)
}

func TestParseEmptyDiff(t *testing.T) {
	files, err := NewParser().Parse("")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestParseSkipsBinaryFiles(t *testing.T) {
	binDiff := "diff --git a/logo.png b/logo.png\n" +
		"index 83db48f..bf269f4 100644\n" +
		"Binary files a/logo.png and b/logo.png differ\n" +
		sampleDiff
	files, err := NewParser().Parse(binDiff)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "internal/server.go", files[0].Path)
}

func TestParseRejectsHeaderlessSection(t *testing.T) {
	_, err := NewParser().Parse("diff --git garbage\n+++ nothing\n")
	assert.Error(t, err)
}

func TestLooksBinary(t *testing.T) {
	assert.True(t, looksBinary("has a null \x00 byte"))
	assert.False(t, looksBinary("package main\n\nfunc main() {}\n"))
	assert.False(t, looksBinary(""))
}
