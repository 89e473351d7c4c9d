package entity

import "time"

// BackfillProgress is the persisted singleton progress row shared by
// the collect and summarize workers. Exactly one logical row exists;
// it is created once at first use and only ever updated.
type BackfillProgress struct {
	CollectRunning   bool
	CollectUntil     time.Time
	CollectScanPage  int
	CollectGoalPages int
	CollectProcessed int
	CollectLastTS    *time.Time

	SumRunning       bool
	SumUntil         time.Time
	SumProcessed     int
	SumGoalTotal     int
	SumModel         string
	SumLastArticleID int64

	UpdatedAt time.Time
}

// ProgressSnapshot is the read-only view handed to status observers.
// Percentages are nil while the corresponding goal is unset or zero,
// so a zero goal never turns into a division.
type ProgressSnapshot struct {
	CollectRunning     bool       `json:"collect_running"`
	CollectUntil       time.Time  `json:"collect_until"`
	CollectScanPage    int        `json:"collect_scan_page"`
	CollectGoalPages   int        `json:"collect_goal_pages"`
	CollectProcessed   int        `json:"collect_processed"`
	CollectLastTS      *time.Time `json:"collect_last_ts,omitempty"`
	CollectPeriod      string     `json:"collect_period,omitempty"`
	CollectProgressPct *int       `json:"collect_progress_pct,omitempty"`

	SumRunning       bool      `json:"sum_running"`
	SumUntil         time.Time `json:"sum_until"`
	SumProcessed     int       `json:"sum_processed"`
	SumGoalTotal     int       `json:"sum_goal_total"`
	SumModel         string    `json:"sum_model"`
	SumLastArticleID int64     `json:"sum_last_article_id"`
	SumProgressPct   *int      `json:"sum_progress_pct,omitempty"`
}

// ProgressPct computes a clamped percentage for processed/goal.
// Returns nil when goal <= 0.
func ProgressPct(processed, goal int) *int {
	if goal <= 0 {
		return nil
	}
	pct := int(float64(processed) / float64(goal) * 100.0)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return &pct
}
