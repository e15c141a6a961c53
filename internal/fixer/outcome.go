package fixer

// Outcome is the terminal result of processing one sidecar. Every discovered
// sidecar gets exactly one per run.
type Outcome int

const (
	OutcomeUpdated Outcome = iota
	OutcomeSkippedNoTimestamp
	OutcomeSkippedNoMedia
	OutcomeSkippedAlreadyHandled
	OutcomeErrorDecodingSidecar
	OutcomeErrorInvalidTimestamp
	OutcomeErrorWritingMetadata
	OutcomeErrorRenameConflict
	OutcomeErrorRenamePartial
	outcomeCount
)

var outcomeNames = [outcomeCount]string{
	"updated",
	"skipped_no_timestamp",
	"skipped_no_media",
	"skipped_already_handled",
	"error_decoding_sidecar",
	"error_invalid_timestamp",
	"error_writing_metadata",
	"error_rename_conflict",
	"error_rename_partial",
}

func (o Outcome) String() string {
	if o < 0 || o >= outcomeCount {
		return "unknown"
	}
	return outcomeNames[o]
}

// IsError reports whether o counts toward the run's error total.
func (o Outcome) IsError() bool {
	return o >= OutcomeErrorDecodingSidecar && o < outcomeCount
}

// ItemResult is the outcome for one sidecar plus where its files ended up.
type ItemResult struct {
	Outcome     Outcome
	SidecarPath string
	MediaPath   string
	Detail      string
	Err         error
}

// RunSummary accumulates outcomes across a run. It is a value: Record returns
// the updated summary and leaves the receiver unchanged.
type RunSummary struct {
	Discovered int
	counts     [outcomeCount]int
}

// NewRunSummary starts a summary for a run that found discovered sidecars.
func NewRunSummary(discovered int) RunSummary {
	return RunSummary{Discovered: discovered}
}

// Record returns s with one more o.
func (s RunSummary) Record(o Outcome) RunSummary {
	if o >= 0 && o < outcomeCount {
		s.counts[o]++
	}
	return s
}

// Count returns how many sidecars ended with o.
func (s RunSummary) Count(o Outcome) int {
	if o < 0 || o >= outcomeCount {
		return 0
	}
	return s.counts[o]
}

// Processed is the number of recorded outcomes.
func (s RunSummary) Processed() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

func (s RunSummary) Updated() int        { return s.counts[OutcomeUpdated] }
func (s RunSummary) SkippedNoMedia() int { return s.counts[OutcomeSkippedNoMedia] }

// Errors is the number of sidecars that ended in any error outcome.
func (s RunSummary) Errors() int {
	n := 0
	for o := OutcomeErrorDecodingSidecar; o < outcomeCount; o++ {
		n += s.counts[o]
	}
	return n
}

// Complete reports whether every discovered sidecar has an outcome.
func (s RunSummary) Complete() bool {
	return s.Processed() == s.Discovered
}
