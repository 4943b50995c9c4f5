package store

import (
	"time"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// ConversionRun is one recorded conversion.
type ConversionRun struct {
	ID           string
	Direction    schema.Direction
	WorkflowName string
	NodeCount    int
	FlagCount    int
	NeedsReview  bool
	Report       *schema.ConversionReport
	Duration     time.Duration
	CreatedAt    time.Time
}

// RunFilter narrows ListRuns results. Zero values mean "no constraint".
type RunFilter struct {
	Direction   schema.Direction
	NeedsReview *bool
	Limit       int
}
