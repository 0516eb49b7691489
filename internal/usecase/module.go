package usecase

import "go.uber.org/fx"

// Module provides the fulfillment and approval use cases to the fx container.
var Module = fx.Provide(
	NewFulfillmentEngine,
	NewIntakeService,
	NewDispatcher,
	NewAllowListCache,
	NewApprovalValidator,
	NewCheckRunReconciler,
	NewDevMode,
	NewApprovalGate,
)
