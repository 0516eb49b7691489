package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/polkiloo/fulfillrelay/internal/config"
	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// CheckRunReconciler keeps the approval check run in line with the latest verdict.
type CheckRunReconciler struct {
	name string
}

// NewCheckRunReconciler constructs CheckRunReconciler for the configured check name.
func NewCheckRunReconciler(cfg *config.Config) *CheckRunReconciler {
	return &CheckRunReconciler{name: cfg.Approval.CheckName()}
}

// Name returns the check run name owned by the reconciler.
func (r *CheckRunReconciler) Name() string { return r.name }

// Reconcile applies result to the check run on the pull request head.
//
//	approved  existing  action
//	yes       no        create in_progress, complete with success
//	yes       yes       complete existing with success
//	no        yes       complete existing with action_required
//	no        no        nothing
func (r *CheckRunReconciler) Reconcile(ctx context.Context, api GitHubAPI, ref model.PullRequestRef, result model.ApprovalResult) (model.CheckAction, error) {
	existing, err := api.FindCheckRun(ctx, ref, r.name)
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		return model.CheckActionNone, fmt.Errorf("find check run: %w", err)
	}

	approved := model.CheckOutput{Title: CheckTitle, Summary: result.Summary, Text: result.Details}

	switch {
	case result.Approved && existing == nil:
		run, err := api.CreateCheckRun(ctx, ref, r.name, model.CheckOutput{Title: CheckTitle, Summary: CheckPendingSummary})
		if err != nil {
			return model.CheckActionNone, fmt.Errorf("create check run: %w", err)
		}
		if err := api.CompleteCheckRun(ctx, ref, run.ID, r.name, model.CheckConclusionSuccess, approved); err != nil {
			return model.CheckActionNone, fmt.Errorf("complete check run: %w", err)
		}
		return model.CheckActionCreated, nil
	case result.Approved:
		if err := api.CompleteCheckRun(ctx, ref, existing.ID, r.name, model.CheckConclusionSuccess, approved); err != nil {
			return model.CheckActionNone, fmt.Errorf("complete check run: %w", err)
		}
		return model.CheckActionSucceeded, nil
	case existing != nil:
		revoked := model.CheckOutput{Title: CheckTitle, Summary: RevokedSummary, Text: RevokedDetails}
		if err := api.CompleteCheckRun(ctx, ref, existing.ID, r.name, model.CheckConclusionActionRequired, revoked); err != nil {
			return model.CheckActionNone, fmt.Errorf("revoke check run: %w", err)
		}
		return model.CheckActionRevoked, nil
	default:
		return model.CheckActionNone, nil
	}
}
