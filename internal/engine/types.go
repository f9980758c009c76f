// Package engine defines core types shared across subsystems.
package engine

import (
	"fmt"
	"time"
)

// Mode selects the delivery mechanism used for a run.
type Mode string

// Delivery modes accepted by the run controller.
const (
	ModeFrame Mode = "frame"
	ModePopup Mode = "popup"
	ModeTab   Mode = "tab"
	ModePing  Mode = "ping"
	ModeFetch Mode = "fetch"
)

// ParseMode validates a mode string, defaulting empty input to ModeFetch.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFrame, ModePopup, ModeTab, ModePing, ModeFetch:
		return Mode(s), nil
	case "":
		return ModeFetch, nil
	default:
		return "", fmt.Errorf("unknown delivery mode %q", s)
	}
}

// UsesBrowser reports whether the mode navigates a browser target.
func (m Mode) UsesBrowser() bool {
	return m == ModeFrame || m == ModePopup || m == ModeTab
}

// ReusePolicy controls window lifetime for popup/tab deliveries.
type ReusePolicy string

// Reuse policies. Fresh opens and disposes a target per attempt; Same keeps
// one target per slot and navigates it repeatedly.
const (
	ReuseFresh ReusePolicy = "fresh"
	ReuseSame  ReusePolicy = "reuse"
)

// ParseReusePolicy validates a reuse policy string, defaulting to fresh.
func ParseReusePolicy(s string) (ReusePolicy, error) {
	switch ReusePolicy(s) {
	case ReuseFresh, ReuseSame:
		return ReusePolicy(s), nil
	case "":
		return ReuseFresh, nil
	default:
		return "", fmt.Errorf("unknown reuse policy %q", s)
	}
}

// Task is one unit of delivery work. Either URL is set (simple task) or
// VariantURLs holds an ordered mirror fallback group. Tasks are immutable
// once enqueued.
type Task struct {
	Mode        Mode
	URL         string
	VariantURLs []string
}

// IsVariantGroup reports whether the task carries a mirror fallback group.
func (t Task) IsVariantGroup() bool {
	return len(t.VariantURLs) > 0
}

// RunStatus represents the lifecycle state of a run.
type RunStatus string

// Run status values.
const (
	RunStatusBuilding RunStatus = "building"
	RunStatusRunning  RunStatus = "running"
	RunStatusFinished RunStatus = "finished"
	RunStatusStopped  RunStatus = "stopped"
)

// RunParameters captures per-run knobs requested by the client.
type RunParameters struct {
	RawURL    string      `json:"url"`
	Mode      Mode        `json:"mode"`
	Reuse     ReusePolicy `json:"reuse"`
	SlotCount int         `json:"slots"`
	Rerun     bool        `json:"rerun"`
	Shuffle   bool        `json:"shuffle"`
}

// RunInfo is the externally visible snapshot of a run.
type RunInfo struct {
	ID            string     `json:"id"`
	Token         int64      `json:"-"`
	Status        RunStatus  `json:"status"`
	NormalizedURL string     `json:"normalized_url"`
	VideoID       string     `json:"video_id,omitempty"`
	Mode          Mode       `json:"mode"`
	TotalTasks    int        `json:"total_tasks"`
	DoneCount     int        `json:"done_count"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// OutcomeRecord is persisted for each resolved delivery attempt.
type OutcomeRecord struct {
	RunID       string    `json:"run_id"`
	URL         string    `json:"url"`
	Mode        Mode      `json:"mode"`
	Success     bool      `json:"success"`
	AttemptedAt time.Time `json:"attempted_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// RunRecord is persisted once per finished or stopped run.
type RunRecord struct {
	ID            string     `json:"id"`
	NormalizedURL string     `json:"normalized_url"`
	Mode          Mode       `json:"mode"`
	Status        RunStatus  `json:"status"`
	TotalTasks    int        `json:"total_tasks"`
	DoneCount     int        `json:"done_count"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Attempt describes one delivery attempt handed to a Strategy. Token and
// SlotID identify the owning worker lane so strategies with per-slot
// resources (reused browser targets) can key on them.
type Attempt struct {
	Token  int64
	SlotID int
	URL    string
	Reuse  bool
}
