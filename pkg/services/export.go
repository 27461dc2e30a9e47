package services

import (
	"context"

	"skontokit/pkg/models"
)

// DecisionExporter delivers confirmed discount decisions to an external
// audit sink. Implementations must not mutate the decision.
type DecisionExporter interface {
	// ExportDecision appends one confirmed decision to the sink.
	ExportDecision(ctx context.Context, decision models.Decision) error
}
