package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/metrics"
)

// gateActions lists the actions that trigger validation, per event name.
var gateActions = map[string]map[string]bool{
	"pull_request":        {"opened": true, "reopened": true, "synchronize": true},
	"pull_request_review": {"submitted": true, "dismissed": true},
	"check_suite":         {"requested": true, "rerequested": true},
	"check_run":           {"rerequested": true},
}

// ApprovalGateParams lists the dependencies of ApprovalGate.
type ApprovalGateParams struct {
	fx.In

	Gateway    GitHubGateway
	Validator  *ApprovalValidator
	Reconciler *CheckRunReconciler
	DevMode    DevMode
	Metrics    *metrics.Metrics `optional:"true"`
	Logger     *slog.Logger
}

// ApprovalGate maintains the approval check run of pull requests.
type ApprovalGate struct {
	gateway    GitHubGateway
	validator  *ApprovalValidator
	reconciler *CheckRunReconciler
	devMode    DevMode
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewApprovalGate constructs ApprovalGate.
func NewApprovalGate(p ApprovalGateParams) *ApprovalGate {
	return &ApprovalGate{
		gateway:    p.Gateway,
		validator:  p.Validator,
		reconciler: p.Reconciler,
		devMode:    p.DevMode,
		metrics:    p.Metrics,
		logger:     p.Logger,
	}
}

// HandleEvent validates the pull request referenced by a GitHub webhook and reconciles its check run.
func (g *ApprovalGate) HandleEvent(ctx context.Context, eventType string, payload []byte) (model.CheckAction, error) {
	event, err := g.gateway.ParseEvent(eventType, payload)
	if err != nil {
		return model.CheckActionNone, err
	}
	if event == nil || !g.relevant(event) {
		g.logger.Debug("ignoring github event", slog.String("event", eventType))
		return model.CheckActionNone, nil
	}

	log := g.logger.With(
		slog.String("event", event.Name),
		slog.String("action", event.Action),
		slog.String("repo", event.Owner+"/"+event.Repo))

	if event.PullRequest == nil {
		if event.Name == "check_suite" {
			log.Info("check suite has no pull requests")
			return model.CheckActionNone, nil
		}
		return model.CheckActionNone, fmt.Errorf("%w: %s missing pull request information", domainErrors.ErrInvalidPayload, event.Name)
	}
	if event.PullRequest.Number == 0 || event.PullRequest.HeadSHA == "" {
		return model.CheckActionNone, fmt.Errorf("%w: %s has incomplete pull request head", domainErrors.ErrInvalidPayload, event.Name)
	}

	if !g.devMode.Allows(event.Repo, event.PullRequest.Number) {
		log.Info("skipped by dev mode", slog.Int("pr", event.PullRequest.Number))
		return model.CheckActionNone, nil
	}

	api, err := g.gateway.ForInstallation(event.InstallationID)
	if err != nil {
		return model.CheckActionNone, fmt.Errorf("installation client: %w", err)
	}

	ref := event.Ref()
	result, err := g.validator.Validate(ctx, api, ref)
	if err != nil {
		return model.CheckActionNone, err
	}

	action, err := g.reconciler.Reconcile(ctx, api, ref, result)
	if err != nil {
		return model.CheckActionNone, err
	}
	g.metrics.ApprovalCheck(string(action))
	log.Info("approval check reconciled",
		slog.Int("pr", ref.Number),
		slog.Bool("approved", result.Approved),
		slog.String("check_action", string(action)))
	return action, nil
}

func (g *ApprovalGate) relevant(event *model.GateEvent) bool {
	if !gateActions[event.Name][event.Action] {
		return false
	}
	return event.Name != "check_run" || event.CheckRunName == g.reconciler.Name()
}
