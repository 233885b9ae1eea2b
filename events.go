package ssbspoof

import (
	"sync"
	"time"
)

// StatusSnapshot is a point-in-time view of a running session, served by the
// monitor and safe to marshal.
type StatusSnapshot struct {
	SessionID       string           `json:"sessionID"`
	State           string           `json:"state"`
	WindowsScanned  uint64           `json:"windowsScanned"`
	ScanElapsedSec  float64          `json:"scanElapsedSec"`
	Detection       *DetectionResult `json:"detection,omitempty"`
	BurstsSent      uint64           `json:"burstsSent"`
	TxElapsedSec    float64          `json:"txElapsedSec"`
	TxErrorsTotal   uint64           `json:"txErrorsTotal"`
	SamplesCaptured uint64           `json:"samplesCaptured"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// StatusBoard is an EventSink that keeps the latest session state for
// concurrent readers. The core loops write through the sink interface; the
// monitor reads snapshots.
type StatusBoard struct {
	mu   sync.RWMutex
	snap StatusSnapshot
}

func NewStatusBoard(sessionID string) *StatusBoard {
	return &StatusBoard{snap: StatusSnapshot{
		SessionID: sessionID,
		State:     "idle",
		UpdatedAt: time.Now(),
	}}
}

func (b *StatusBoard) SetSessionID(id string) {
	b.mu.Lock()
	b.snap.SessionID = id
	b.snap.UpdatedAt = time.Now()
	b.mu.Unlock()
}

func (b *StatusBoard) SetState(state string) {
	b.mu.Lock()
	b.snap.State = state
	b.snap.UpdatedAt = time.Now()
	b.mu.Unlock()
}

func (b *StatusBoard) WindowScanned(windows uint64, elapsed time.Duration) {
	b.mu.Lock()
	b.snap.WindowsScanned = windows
	b.snap.ScanElapsedSec = elapsed.Seconds()
	b.snap.UpdatedAt = time.Now()
	b.mu.Unlock()
}

func (b *StatusBoard) DetectionFound(res DetectionResult) {
	b.mu.Lock()
	r := res
	b.snap.Detection = &r
	b.snap.UpdatedAt = time.Now()
	b.mu.Unlock()
}

func (b *StatusBoard) BurstSent(sent uint64, elapsed time.Duration) {
	b.mu.Lock()
	b.snap.BurstsSent = sent
	b.snap.TxElapsedSec = elapsed.Seconds()
	b.snap.UpdatedAt = time.Now()
	b.mu.Unlock()
}

func (b *StatusBoard) TransmitError(consecutive int, err error) {
	b.mu.Lock()
	b.snap.TxErrorsTotal++
	b.snap.UpdatedAt = time.Now()
	b.mu.Unlock()
}

func (b *StatusBoard) SamplesCaptured(total uint64, captured time.Duration) {
	b.mu.Lock()
	b.snap.SamplesCaptured = total
	b.snap.UpdatedAt = time.Now()
	b.mu.Unlock()
}

func (b *StatusBoard) Snapshot() StatusSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}
