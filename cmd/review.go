package cmd

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/reviewpilot/internal/hosting"
	"github.com/reviewpilot/pkg/models"
)

// ReviewCommand returns the review command
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Review a merge request once and exit",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Run the review without posting the comment",
			},
		},
		ArgsUsage: "MR_URL | PROJECT_ID MR_IID",
		Action:    runReview,
	}
}

func runReview(c *cli.Context) error {
	projectID, mrIID, err := parseTarget(c)
	if err != nil {
		return err
	}

	ctx := context.Background()

	rt, err := buildRuntime(ctx, c)
	if err != nil {
		return err
	}
	defer rt.close()

	controller := rt.controller
	if c.Bool("dry-run") {
		controller = rt.controllerFor(&dryRunHost{Host: rt.host})
	}

	outcome, err := controller.Execute(ctx, models.ReviewRequest{
		ProjectID:    projectID,
		MergeRequest: mrIID,
		EventID:      uuid.NewString(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Review finished: state=%s published=%v chunks=%d/%d\n",
		outcome.State, outcome.Published,
		outcome.Report.ChunksReviewed, outcome.Report.ChunksTotal)
	return nil
}

var mrURLPattern = regexp.MustCompile(`(.+)/-/merge_requests/(\d+)$`)

func parseTarget(c *cli.Context) (string, int, error) {
	switch c.NArg() {
	case 1:
		return parseMRURL(c.Args().Get(0))
	case 2:
		mrIID, err := strconv.Atoi(c.Args().Get(1))
		if err != nil {
			return "", 0, fmt.Errorf("invalid MR IID: %w", err)
		}
		return c.Args().Get(0), mrIID, nil
	default:
		return "", 0, fmt.Errorf("expected an MR URL or PROJECT_ID MR_IID")
	}
}

// parseMRURL extracts the project path and MR IID from a GitLab merge
// request URL like https://gitlab.example.com/group/app/-/merge_requests/7.
func parseMRURL(mrURL string) (string, int, error) {
	parsed, err := url.Parse(mrURL)
	if err != nil {
		return "", 0, fmt.Errorf("invalid URL: %w", err)
	}

	path := parsed.Path
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}

	matches := mrURLPattern.FindStringSubmatch(path)
	if len(matches) != 3 {
		return "", 0, fmt.Errorf("could not extract project and MR IID from URL: %s", mrURL)
	}

	mrIID, err := strconv.Atoi(matches[2])
	if err != nil {
		return "", 0, fmt.Errorf("invalid MR IID: %w", err)
	}
	return matches[1], mrIID, nil
}

// dryRunHost prints the review instead of posting it.
type dryRunHost struct {
	hosting.Host
}

func (d *dryRunHost) PublishReview(_ context.Context, report models.FinalReport) error {
	fmt.Printf("--- review for project %s MR !%d (not posted) ---\n%s\n",
		report.ProjectID, report.MergeRequest, report.Body)
	return nil
}
