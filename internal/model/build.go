package model

import "time"

// BuildContext identifies one CI run. One row per run; (commit_sha, run_id)
// is unique, so re-running the same workflow attempt updates in place.
type BuildContext struct {
	ID        int64     `json:"id"`
	CommitSHA string    `json:"commit_sha"`
	Branch    string    `json:"branch"`
	RunID     string    `json:"run_id"`
	RunNumber int64     `json:"run_number"`
	Actor     string    `json:"actor,omitempty"`
	EventName string    `json:"event_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	PRNumber  *int64    `json:"pr_number,omitempty"`
	PRBase    *string   `json:"pr_base,omitempty"`
	PRHead    *string   `json:"pr_head,omitempty"`
}

// IsPullRequest reports whether the run was triggered by a pull request event.
func (b BuildContext) IsPullRequest() bool {
	return b.PRNumber != nil
}
