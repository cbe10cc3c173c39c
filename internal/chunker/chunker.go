package chunker

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/reviewpilot/pkg/models"
)

// ErrInvalidBudget is returned when the chunk budget is not positive.
var ErrInvalidBudget = errors.New("chunk budget must be positive")

// Chunk splits per-file diffs into ordered chunks bounded by a character
// budget. Files are accumulated greedily in input order and a file's diff
// is never split across chunks: a file larger than the budget on its own
// becomes a singleton oversized chunk rather than being dropped or cut
// mid-hunk. Zero files yields zero chunks, which callers must treat as
// "nothing to review".
func Chunk(files []models.FileDiff, budget int) ([]models.Chunk, error) {
	if budget <= 0 {
		return nil, ErrInvalidBudget
	}
	if len(files) == 0 {
		return nil, nil
	}

	var groups [][]models.FileDiff
	var current []models.FileDiff
	currentLen := 0

	for _, f := range files {
		if len(current) > 0 && currentLen+f.Length > budget {
			groups = append(groups, current)
			current = nil
			currentLen = 0
		}
		current = append(current, f)
		currentLen += f.Length

		if f.Length > budget {
			log.Warn().
				Str("file", f.Path).
				Int("length", f.Length).
				Int("budget", budget).
				Msg("file diff exceeds chunk budget, reviewing as oversized chunk")
		}
	}
	groups = append(groups, current)

	total := len(groups)
	chunks := make([]models.Chunk, 0, total)
	for i, group := range groups {
		chunks = append(chunks, models.Chunk{
			Index: i,
			Total: total,
			Files: group,
		})
	}

	log.Debug().
		Int("files", len(files)).
		Int("chunks", total).
		Int("budget", budget).
		Msg("chunked merge request diff")

	return chunks, nil
}
