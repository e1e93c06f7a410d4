package driven

import (
	"time"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

// PipelineObserver records per-request pipeline measurements.
// Implementations must be safe for concurrent use.
type PipelineObserver interface {
	// ObserveOutcome counts a finished request by mode (answer, context) and kind
	ObserveOutcome(mode string, kind domain.OutcomeKind)

	// ObserveStage records how long a pipeline stage took
	ObserveStage(stage string, d time.Duration)

	// ObserveLookup counts identity and collection lookups by status
	ObserveLookup(lookup string, status domain.LookupStatus)
}

// NopObserver discards all measurements
type NopObserver struct{}

func (NopObserver) ObserveOutcome(string, domain.OutcomeKind) {}
func (NopObserver) ObserveStage(string, time.Duration)        {}
func (NopObserver) ObserveLookup(string, domain.LookupStatus) {}

var _ PipelineObserver = NopObserver{}
