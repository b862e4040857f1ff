package gh

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// newClient creates a GitHub client, authenticated when a token is given.
// The workflow-runs endpoint works unauthenticated for public repositories.
func newClient(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// LatestRunConclusion fetches the conclusion of the most recent completed
// workflow run for ownerRepo. Used only to decorate the report footer;
// callers treat any error as "no decoration".
func LatestRunConclusion(ctx context.Context, token, ownerRepo string) (string, error) {
	parts := strings.Split(ownerRepo, "/")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid owner/repo format: %s", ownerRepo)
	}
	owner, repo := parts[0], parts[1]

	client := newClient(ctx, token)

	runs, _, err := client.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo,
		&github.ListWorkflowRunsOptions{
			Status:      "completed",
			ListOptions: github.ListOptions{PerPage: 1},
		})
	if err != nil {
		return "", fmt.Errorf("listing workflow runs: %w", err)
	}

	if len(runs.WorkflowRuns) == 0 {
		return "", nil
	}

	return runs.WorkflowRuns[0].GetConclusion(), nil
}
