package github

import (
	"fmt"

	gh "github.com/google/go-github/v66/github"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// Event names consumed by the approval gate.
const (
	EventPullRequest       = "pull_request"
	EventPullRequestReview = "pull_request_review"
	EventCheckSuite        = "check_suite"
	EventCheckRun          = "check_run"
)

// ParseEvent decodes a webhook delivery. Unsupported event names yield nil without error.
func ParseEvent(eventType string, payload []byte) (*model.GateEvent, error) {
	switch eventType {
	case EventPullRequest, EventPullRequestReview, EventCheckSuite, EventCheckRun:
	default:
		return nil, nil
	}

	raw, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidPayload, err)
	}

	event := &model.GateEvent{Name: eventType}
	var (
		installation *gh.Installation
		repo         *gh.Repository
	)

	switch e := raw.(type) {
	case *gh.PullRequestEvent:
		event.Action = e.GetAction()
		installation, repo = e.GetInstallation(), e.GetRepo()
		event.PullRequest = head(e.GetPullRequest().GetNumber(), e.GetPullRequest().GetHead().GetSHA())
	case *gh.PullRequestReviewEvent:
		event.Action = e.GetAction()
		installation, repo = e.GetInstallation(), e.GetRepo()
		event.PullRequest = head(e.GetPullRequest().GetNumber(), e.GetPullRequest().GetHead().GetSHA())
	case *gh.CheckSuiteEvent:
		event.Action = e.GetAction()
		installation, repo = e.GetInstallation(), e.GetRepo()
		if prs := e.GetCheckSuite().PullRequests; len(prs) > 0 {
			event.PullRequest = head(prs[0].GetNumber(), e.GetCheckSuite().GetHeadSHA())
		}
	case *gh.CheckRunEvent:
		event.Action = e.GetAction()
		installation, repo = e.GetInstallation(), e.GetRepo()
		event.CheckRunName = e.GetCheckRun().GetName()
		if prs := e.GetCheckRun().PullRequests; len(prs) > 0 {
			event.PullRequest = head(prs[0].GetNumber(), e.GetCheckRun().GetHeadSHA())
		}
	default:
		return nil, nil
	}

	event.InstallationID = installation.GetID()
	event.Owner = repo.GetOwner().GetLogin()
	event.Repo = repo.GetName()
	if event.InstallationID == 0 {
		return nil, fmt.Errorf("%w: %s missing installation.id", domainErrors.ErrInvalidPayload, eventType)
	}
	if event.Owner == "" || event.Repo == "" {
		return nil, fmt.Errorf("%w: %s missing repository information", domainErrors.ErrInvalidPayload, eventType)
	}
	return event, nil
}

func head(number int, sha string) *model.PullRequestHead {
	if number == 0 && sha == "" {
		return nil
	}
	return &model.PullRequestHead{Number: number, HeadSHA: sha}
}
