package prompt

import (
	"fmt"
	"strings"

	"github.com/reviewpilot/pkg/models"
)

// Context carries the merge request metadata embedded in every prompt.
type Context struct {
	Title       string
	Description string
	FileList    []string
}

// Prompt is a rendered provider-agnostic review prompt.
type Prompt struct {
	Text             string
	ChunkIndex       int
	TotalChunks      int
	DefaultRulesUsed bool
}

// Builder renders chunks into review prompts. Build is a pure function:
// identical inputs always produce identical prompt text.
type Builder struct{}

// NewBuilder creates a prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build renders one chunk plus the review rules into a prompt. An empty
// rules string is passed through verbatim; pass defaultRulesUsed only when
// the rules document could not be fetched and DefaultRules was substituted
// by the caller.
func (b *Builder) Build(chunk models.Chunk, rules string, mrCtx Context, defaultRulesUsed bool) Prompt {
	var sb strings.Builder

	sb.WriteString("You are an expert code reviewer for a merge request.\n\n")

	sb.WriteString("# Merge Request\n\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", mrCtx.Title))
	if mrCtx.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", mrCtx.Description))
	}
	if len(mrCtx.FileList) > 0 {
		sb.WriteString("All changed files in this merge request:\n")
		for _, path := range mrCtx.FileList {
			sb.WriteString(fmt.Sprintf("- %s\n", path))
		}
	}
	sb.WriteString("\n")

	// The model must know it is looking at a partial view so it does not
	// flag "missing" code that lives in another chunk.
	sb.WriteString(fmt.Sprintf(
		"You are reviewing part %d of %d of this merge request's diff. "+
			"Other parts are reviewed separately; do not comment on files "+
			"outside this part.\n\n",
		chunk.Index+1, chunk.Total))

	sb.WriteString("# Review Rules\n\n")
	sb.WriteString(rules)
	sb.WriteString("\n\n")

	sb.WriteString("# Response Format\n\n")
	sb.WriteString("Respond with JSON only, using this structure:\n")
	sb.WriteString("```json\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"summary\": \"One-paragraph assessment of this part of the diff\",\n")
	sb.WriteString("  \"findings\": [\n")
	sb.WriteString("    {\n")
	sb.WriteString("      \"file\": \"path/to/file.ext\",\n")
	sb.WriteString("      \"severity\": \"info|warning|critical\",\n")
	sb.WriteString("      \"comment\": \"Description of the issue and a concrete suggestion\"\n")
	sb.WriteString("    }\n")
	sb.WriteString("  ]\n")
	sb.WriteString("}\n")
	sb.WriteString("```\n\n")

	sb.WriteString("# Code Changes\n\n")
	for _, file := range chunk.Files {
		sb.WriteString(fmt.Sprintf("## File: %s\n\n", file.Path))
		sb.WriteString("```diff\n")
		sb.WriteString(file.Diff)
		if !strings.HasSuffix(file.Diff, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("```\n\n")
	}

	return Prompt{
		Text:             sb.String(),
		ChunkIndex:       chunk.Index,
		TotalChunks:      chunk.Total,
		DefaultRulesUsed: defaultRulesUsed,
	}
}
