package domain

// QualityScore is one iteration's assessment of an artifact: an overall
// 0-100 score plus per-criterion scores. Append-only per session.
type QualityScore struct {
	Iteration int                `json:"iteration"`
	Overall   float64            `json:"overall"`
	Criteria  map[string]float64 `json:"criteria,omitempty"`
}

// Issue is a specific problem identified during quality assessment.
type Issue struct {
	Criterion   string `json:"criterion"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// Suggestion is an actionable improvement for one criterion, produced per
// iteration and consumed immediately by the apply step.
type Suggestion struct {
	Criterion    string  `json:"criterion"`
	CurrentScore float64 `json:"current_score"`
	Priority     string  `json:"priority"`
	Text         string  `json:"text"`
	Issues       []Issue `json:"issues,omitempty"`
}

// IterationRecord summarizes one convergence-loop round.
type IterationRecord struct {
	Iteration     int      `json:"iteration"`
	ScoreBefore   float64  `json:"score_before"`
	ScoreAfter    float64  `json:"score_after"`
	Suggestions   int      `json:"suggestions"`
	FilesModified []string `json:"files_modified,omitempty"`
}

// LoopResult is the final report of a convergence loop run.
type LoopResult struct {
	SessionID      string            `json:"session_id"`
	FinalScore     float64           `json:"final_score"`
	ThresholdMet   bool              `json:"threshold_met"`
	Converged      bool              `json:"converged"`
	BudgetExceeded bool              `json:"budget_exceeded"`
	Iterations     []IterationRecord `json:"iterations"`
}

// Improvement is a stored config-update suggestion awaiting operator review.
type Improvement struct {
	ID          int64          `json:"id"`
	SessionID   string         `json:"session_id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	TargetFile  string         `json:"target_file,omitempty"`
	Changes     map[string]any `json:"changes,omitempty"`
	Status      string         `json:"status"`
}

// Improvement review states.
const (
	ImprovementPending  = "pending"
	ImprovementApproved = "approved"
	ImprovementRejected = "rejected"
)
