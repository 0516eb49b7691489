package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// Check run texts.
const (
	CheckTitle            = "Approval Check"
	CheckPendingSummary   = "Validating pull request approvals..."
	ApprovedSummary       = "✅ Pull request has been approved by authorized team members."
	AwaitingSummary       = "⏳ Awaiting approval from authorized team members..."
	RevokedSummary        = "⚠️ Approval revoked - action required"
	RevokedDetails        = "This pull request was previously approved but the approval is no longer valid. It requires re-approval from an authorized team member before it can be merged."
	reviewTimestampLayout = "2006-01-02 15:04:05 UTC"
)

// AggregateReviews keeps the latest review of every reviewer, newest first.
func AggregateReviews(reviews []model.Review) []model.Review {
	latest := make(map[int64]model.Review, len(reviews))
	for _, r := range reviews {
		cur, ok := latest[r.ReviewerID]
		if !ok || r.SubmittedAt.After(cur.SubmittedAt) || (r.SubmittedAt.Equal(cur.SubmittedAt) && r.ID > cur.ID) {
			latest[r.ReviewerID] = r
		}
	}

	out := make([]model.Review, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// EvaluateApproval decides whether an authorized reviewer currently approves the pull request.
func EvaluateApproval(reviews []model.Review, users []model.AllowedUser) model.ApprovalResult {
	authorized := make(map[int64]struct{}, len(users))
	for _, u := range users {
		if u.Authorized() {
			authorized[u.GitHub.ID] = struct{}{}
		}
	}

	history := AggregateReviews(reviews)
	var approvers []string
	for _, r := range history {
		if r.State != model.ReviewApproved {
			continue
		}
		if _, ok := authorized[r.ReviewerID]; ok {
			approvers = append(approvers, r.ReviewerLogin)
		}
	}

	result := model.ApprovalResult{
		Approved:   len(approvers) > 0,
		HasReviews: len(history) > 0,
		Approvers:  approvers,
		History:    history,
	}
	result.Summary, result.Details = renderApproval(result)
	return result
}

func renderApproval(r model.ApprovalResult) (string, string) {
	summary := AwaitingSummary
	if r.Approved {
		summary = ApprovedSummary
	}

	var b strings.Builder
	b.WriteString("## Approval Status\n\n")
	if r.Approved {
		b.WriteString("### ✅ Approved by:\n")
		for _, login := range r.Approvers {
			fmt.Fprintf(&b, "- @%s\n", login)
		}
	} else {
		b.WriteString("### ⏳ Waiting for approval\n")
		b.WriteString("This pull request requires approval from authorized team members before it can be merged.\n")
	}

	if len(r.History) > 0 {
		b.WriteString("\n### 📝 Review History:\n")
		for _, review := range r.History {
			fmt.Fprintf(&b, "- %s @%s - %s (%s)\n",
				reviewEmoji(review.State), review.ReviewerLogin, review.State,
				review.SubmittedAt.UTC().Format(reviewTimestampLayout))
		}
	}

	b.WriteString("\n---\n")
	b.WriteString("*This check ensures that pull requests are approved by authorized team members before merging.*\n")
	if !r.Approved {
		b.WriteString("*If you believe you should have approval permissions, please contact the repository administrators.*")
	}
	return summary, b.String()
}

func reviewEmoji(state model.ReviewState) string {
	switch state {
	case model.ReviewApproved:
		return "✅"
	case model.ReviewChangesRequested:
		return "❌"
	default:
		return "💬"
	}
}

// ApprovalValidator evaluates pull requests against the reviewer allow-list.
type ApprovalValidator struct {
	allowList *AllowListCache
}

// NewApprovalValidator constructs ApprovalValidator.
func NewApprovalValidator(allowList *AllowListCache) *ApprovalValidator {
	return &ApprovalValidator{allowList: allowList}
}

// Validate loads the allow-list and the reviews of ref and evaluates them.
func (v *ApprovalValidator) Validate(ctx context.Context, api GitHubAPI, ref model.PullRequestRef) (model.ApprovalResult, error) {
	users := v.allowList.Users(ctx)

	reviews, err := api.ListReviews(ctx, ref)
	if err != nil {
		return model.ApprovalResult{}, fmt.Errorf("list reviews of %s/%s#%d: %w", ref.Owner, ref.Repo, ref.Number, err)
	}
	return EvaluateApproval(reviews, users), nil
}
