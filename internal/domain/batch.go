package domain

// PlanOutcome wraps a plan with how it was produced.
type PlanOutcome struct {
	Plan     *PlanResult
	CacheHit bool
}

type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchFailed  BatchStatus = "failed"
)

// BatchPlanResult is the outcome of one request in a batch. Index is the
// request's position in the submitted list.
type BatchPlanResult struct {
	Index   int         `json:"index"`
	Status  BatchStatus `json:"status"`
	Plan    *PlanResult `json:"plan,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

type BatchSummary struct {
	SuccessCount     int   `json:"success_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type BatchMeta struct {
	GeneratedAt     string `json:"generated_at"`
	SnapshotVersion string `json:"snapshot_version"`
}

type BatchResponse struct {
	Results  []BatchPlanResult `json:"results"`
	Summary  BatchSummary      `json:"summary"`
	Metadata BatchMeta         `json:"metadata"`
}
