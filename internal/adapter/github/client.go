package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

const pageSize = 100

// Client wraps the GitHub REST endpoints used by the approval gate.
type Client struct {
	api    *gh.Client
	logger *slog.Logger
}

// NewClient creates a client over httpClient. An empty baseURL keeps api.github.com.
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) (*Client, error) {
	api := gh.NewClient(httpClient)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github url: %w", err)
		}
		if !parsed.IsAbs() {
			return nil, fmt.Errorf("github url must be absolute")
		}
		if !strings.HasSuffix(parsed.Path, "/") {
			parsed.Path += "/"
		}
		api.BaseURL = parsed
	}
	return &Client{api: api, logger: logger}, nil
}

// ListReviews returns every review of the pull request across all pages.
func (c *Client) ListReviews(ctx context.Context, ref model.PullRequestRef) ([]model.Review, error) {
	opts := &gh.ListOptions{PerPage: pageSize}
	var reviews []model.Review
	for {
		page, resp, err := c.api.PullRequests.ListReviews(ctx, ref.Owner, ref.Repo, ref.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("list reviews for %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
		}
		for _, r := range page {
			reviews = append(reviews, model.Review{
				ID:            r.GetID(),
				ReviewerID:    r.GetUser().GetID(),
				ReviewerLogin: r.GetUser().GetLogin(),
				State:         model.ReviewState(r.GetState()),
				SubmittedAt:   r.GetSubmittedAt().Time,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			return reviews, nil
		}
		opts.Page = resp.NextPage
	}
}

// FindCheckRun looks up the named check run on the head commit.
func (c *Client) FindCheckRun(ctx context.Context, ref model.PullRequestRef, name string) (*model.CheckRun, error) {
	opts := &gh.ListCheckRunsOptions{
		CheckName:   gh.String(name),
		ListOptions: gh.ListOptions{PerPage: pageSize},
	}
	result, _, err := c.api.Checks.ListCheckRunsForRef(ctx, ref.Owner, ref.Repo, ref.HeadSHA, opts)
	if err != nil {
		return nil, fmt.Errorf("list check runs for %s: %w", ref.HeadSHA, err)
	}
	for _, run := range result.CheckRuns {
		if run.GetName() == name {
			return toCheckRun(run), nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// CreateCheckRun starts an in-progress check run on the head commit.
func (c *Client) CreateCheckRun(ctx context.Context, ref model.PullRequestRef, name string, output model.CheckOutput) (*model.CheckRun, error) {
	run, _, err := c.api.Checks.CreateCheckRun(ctx, ref.Owner, ref.Repo, gh.CreateCheckRunOptions{
		Name:      name,
		HeadSHA:   ref.HeadSHA,
		Status:    gh.String(model.CheckStatusInProgress),
		StartedAt: &gh.Timestamp{Time: time.Now()},
		Output: &gh.CheckRunOutput{
			Title:   gh.String(output.Title),
			Summary: gh.String(output.Summary),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create check run: %w", err)
	}
	if run.GetID() == 0 {
		return nil, fmt.Errorf("create check run: response without id")
	}
	return toCheckRun(run), nil
}

// CompleteCheckRun finishes a check run with the given conclusion.
func (c *Client) CompleteCheckRun(ctx context.Context, ref model.PullRequestRef, id int64, name, conclusion string, output model.CheckOutput) error {
	_, _, err := c.api.Checks.UpdateCheckRun(ctx, ref.Owner, ref.Repo, id, gh.UpdateCheckRunOptions{
		Name:        name,
		Status:      gh.String(model.CheckStatusCompleted),
		Conclusion:  gh.String(conclusion),
		CompletedAt: &gh.Timestamp{Time: time.Now()},
		Output: &gh.CheckRunOutput{
			Title:   gh.String(output.Title),
			Summary: gh.String(output.Summary),
			Text:    gh.String(output.Text),
		},
	})
	if err != nil {
		return fmt.Errorf("update check run %d: %w", id, err)
	}
	return nil
}

func toCheckRun(run *gh.CheckRun) *model.CheckRun {
	return &model.CheckRun{
		ID:         run.GetID(),
		Name:       run.GetName(),
		HeadSHA:    run.GetHeadSHA(),
		Status:     run.GetStatus(),
		Conclusion: run.GetConclusion(),
	}
}
