package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpilot/pkg/models"
)

func fakeFile(path string, length int) models.FileDiff {
	return models.FileDiff{Path: path, Diff: strings.Repeat("x", length), Length: length}
}

func TestChunkRejectsNonPositiveBudget(t *testing.T) {
	_, err := Chunk([]models.FileDiff{fakeFile("a.go", 10)}, 0)
	assert.ErrorIs(t, err, ErrInvalidBudget)

	_, err = Chunk([]models.FileDiff{fakeFile("a.go", 10)}, -5)
	assert.ErrorIs(t, err, ErrInvalidBudget)
}

func TestChunkZeroFilesYieldsZeroChunks(t *testing.T) {
	chunks, err := Chunk(nil, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkGreedyAccumulation(t *testing.T) {
	// 40k + 70k exceeds a 100k budget even though each fits alone, so
	// the 70k file opens a second chunk; the trailing 10k file still
	// fits beside it and is packed rather than split off.
	files := []models.FileDiff{
		fakeFile("a.go", 40_000),
		fakeFile("b.go", 70_000),
		fakeFile("c.go", 10_000),
	}
	chunks, err := Chunk(files, 100_000)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, []string{"a.go"}, chunks[0].Paths())
	assert.Equal(t, []string{"b.go", "c.go"}, chunks[1].Paths())
	assert.LessOrEqual(t, chunks[1].Length(), 100_000)
}

func TestChunkPacksFilesUnderBudget(t *testing.T) {
	files := []models.FileDiff{
		fakeFile("a.go", 30),
		fakeFile("b.go", 30),
		fakeFile("c.go", 30),
		fakeFile("d.go", 50),
	}
	chunks, err := Chunk(files, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, chunks[0].Paths())
	assert.Equal(t, []string{"d.go"}, chunks[1].Paths())
}

func TestChunkOversizedFileBecomesSingleton(t *testing.T) {
	files := []models.FileDiff{
		fakeFile("small.go", 10),
		fakeFile("huge.go", 500),
		fakeFile("tail.go", 10),
	}
	chunks, err := Chunk(files, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, []string{"huge.go"}, chunks[1].Paths())
	assert.Greater(t, chunks[1].Length(), 100)
}

func TestChunkNumberingAndTotals(t *testing.T) {
	files := []models.FileDiff{
		fakeFile("a.go", 60),
		fakeFile("b.go", 60),
	}
	chunks, err := Chunk(files, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, 2, c.Total)
	}
}

// Property check over a spread of budgets: concatenating chunk contents
// always reproduces the input file list with nothing split, lost, or
// duplicated, and every non-singleton chunk stays within budget.
func TestChunkPartitionProperty(t *testing.T) {
	files := []models.FileDiff{
		fakeFile("a.go", 17),
		fakeFile("b.go", 3),
		fakeFile("c.go", 211),
		fakeFile("d.go", 44),
		fakeFile("e.go", 44),
		fakeFile("f.go", 1),
	}

	for _, budget := range []int{1, 10, 45, 100, 250, 10_000} {
		chunks, err := Chunk(files, budget)
		require.NoError(t, err)

		var got []string
		for _, c := range chunks {
			require.NotEmpty(t, c.Files, "budget %d produced an empty chunk", budget)
			if len(c.Files) > 1 {
				assert.LessOrEqual(t, c.Length(), budget,
					"budget %d: multi-file chunk over budget", budget)
			}
			got = append(got, c.Paths()...)
		}

		var want []string
		for _, f := range files {
			want = append(want, f.Path)
		}
		assert.Equal(t, want, got, "budget %d", budget)
	}
}
