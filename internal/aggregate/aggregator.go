package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reviewpilot/pkg/models"
)

// Input carries everything the aggregator needs besides the chunk
// results themselves.
type Input struct {
	Request       models.ReviewRequest
	ProviderOrder []models.ProviderIdentity
	ChunksTotal   int
	DegradedRules bool
}

// Aggregate merges chunk results into one FinalReport. Ordering is fully
// deterministic: chunk index ascending, then providers in their
// configured order — never response-arrival order. Failed fragments are
// omitted from the body but their providers are recorded on the report.
// Aggregation never produces a missing artifact: an all-failed run and a
// zero-provider run both yield an explicit body.
func Aggregate(results []models.ChunkReviewResult, in Input) models.FinalReport {
	report := models.FinalReport{
		ProjectID:      in.Request.ProjectID,
		MergeRequest:   in.Request.MergeRequest,
		EventID:        in.Request.EventID,
		DegradedRules:  in.DegradedRules,
		ChunksReviewed: len(results),
		ChunksTotal:    in.ChunksTotal,
	}

	sorted := make([]models.ChunkReviewResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ChunkIndex < sorted[j].ChunkIndex
	})

	contributed := map[string]bool{}
	failed := map[string]bool{}

	var body strings.Builder
	body.WriteString(fmt.Sprintf("## Code Review: %s\n", in.Request.Title))

	if in.DegradedRules {
		body.WriteString("\n> Note: the project's review rules document could not be fetched; built-in default rules were applied.\n")
	}

	wroteAnyFragment := false
	for _, result := range sorted {
		var chunkParts []string
		for _, want := range in.ProviderOrder {
			frag, ok := findFragment(result.Fragments, want)
			if !ok {
				continue
			}
			if frag.OK() {
				contributed[want.String()] = true
				chunkParts = append(chunkParts, fmt.Sprintf("#### %s\n\n%s\n", want.String(), strings.TrimSpace(frag.Text)))
			} else {
				failed[want.String()] = true
			}
		}

		if len(chunkParts) == 0 {
			continue
		}
		wroteAnyFragment = true
		if in.ChunksTotal > 1 {
			body.WriteString(fmt.Sprintf("\n### Part %d of %d\n\n", result.ChunkIndex+1, in.ChunksTotal))
		} else {
			body.WriteString("\n")
		}
		body.WriteString(strings.Join(chunkParts, "\n"))
	}

	switch {
	case len(in.ProviderOrder) == 0:
		body.WriteString("\nNo review providers are configured; no review could be generated.\n")
	case in.ChunksTotal == 0:
		body.WriteString("\nNo reviewable changes were found in this merge request.\n")
	case !wroteAnyFragment:
		body.WriteString("\nNo review could be generated: every provider failed for every part of the diff.\n")
	}

	// Without providers nothing is ever dispatched; the "no providers"
	// body already explains the absence, so a partial note would mislead.
	if len(in.ProviderOrder) > 0 && report.ChunksReviewed < report.ChunksTotal {
		body.WriteString(fmt.Sprintf(
			"\n> Partial review: %d of %d parts of the diff were reviewed before the run deadline.\n",
			report.ChunksReviewed, report.ChunksTotal))
	}

	report.Body = body.String()
	report.Contributed = sortedKeys(contributed)

	// A provider that contributed anywhere still appears in the failed
	// list if it failed elsewhere; both facts are worth surfacing.
	report.Failed = sortedKeys(failed)

	return report
}

func findFragment(fragments []models.ReviewFragment, id models.ProviderIdentity) (models.ReviewFragment, bool) {
	for _, f := range fragments {
		if f.Provider == id {
			return f, true
		}
	}
	return models.ReviewFragment{}, false
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
