package models

import (
	"fmt"
	"strconv"
)

// ReviewRequest identifies one triggering event for a merge request review.
// It is constructed once per trigger and passed through the pipeline
// unchanged; nothing in the engine mutates it after construction.
type ReviewRequest struct {
	BaseURL      string
	ProjectID    string
	MergeRequest int
	EventID      string
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
	DiffText     string
	ChangedFiles []string
}

// FileDiff is one file's portion of a merge request diff.
type FileDiff struct {
	Path   string
	Diff   string
	Length int
}

// Chunk is an ordered, non-empty run of FileDiffs whose combined length
// fits the configured budget. A single FileDiff never spans two chunks;
// a file larger than the budget becomes its own oversized chunk.
type Chunk struct {
	Index int
	Total int
	Files []FileDiff
}

// Length returns the combined diff length of all files in the chunk.
func (c Chunk) Length() int {
	total := 0
	for _, f := range c.Files {
		total += f.Length
	}
	return total
}

// Paths returns the file paths in the chunk, in order.
func (c Chunk) Paths() []string {
	paths := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// ProviderIdentity labels review output and keys per-provider results.
type ProviderIdentity struct {
	Name  string
	Model string
}

// String returns "name/model" for logging and report headings.
func (p ProviderIdentity) String() string {
	if p.Model == "" {
		return p.Name
	}
	return p.Name + "/" + p.Model
}

// FragmentStatus is the terminal state of one provider call for one chunk.
type FragmentStatus string

const (
	FragmentOK      FragmentStatus = "ok"
	FragmentFailed  FragmentStatus = "failed"
	FragmentTimeout FragmentStatus = "timeout"
)

// ReviewFragment is one provider's review output for one chunk.
type ReviewFragment struct {
	Provider   ProviderIdentity
	ChunkIndex int
	Status     FragmentStatus
	Text       string
	FailReason string
}

// OK reports whether the fragment holds a usable review.
func (f ReviewFragment) OK() bool {
	return f.Status == FragmentOK
}

// ChunkReviewResult carries every configured provider's fragment for one
// chunk, failures included. The dispatcher owns it until aggregation.
type ChunkReviewResult struct {
	ChunkIndex int
	Fragments  []ReviewFragment
}

// AllFailed reports whether no provider produced a usable fragment.
// A result with zero configured providers counts as all-failed.
func (r ChunkReviewResult) AllFailed() bool {
	for _, f := range r.Fragments {
		if f.OK() {
			return false
		}
	}
	return true
}

// FinalReport is the terminal artifact handed to the publisher.
type FinalReport struct {
	ProjectID      string
	MergeRequest   int
	EventID        string
	Body           string
	Contributed    []string
	Failed         []string
	DegradedRules  bool
	ChunksReviewed int
	ChunksTotal    int
}

// IdempotencyKey identifies the publish for this report's trigger event.
// Repeated deliveries of the same event map to the same key.
func (r FinalReport) IdempotencyKey() string {
	return fmt.Sprintf("%s!%s!%s", r.ProjectID, strconv.Itoa(r.MergeRequest), r.EventID)
}
