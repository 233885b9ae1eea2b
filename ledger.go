package ssbspoof

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS detections (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT    NOT NULL,
	pci         INTEGER NOT NULL,
	ssb_idx     INTEGER NOT NULL,
	snr_db      REAL    NOT NULL,
	rsrp_dbm    REAL    NOT NULL,
	cell_barred INTEGER NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT    NOT NULL,
	state         TEXT    NOT NULL,
	bursts_sent   INTEGER NOT NULL,
	elapsed_sec   REAL    NOT NULL,
	avg_rate      REAL    NOT NULL,
	total_samples INTEGER NOT NULL,
	attack_ratio  REAL    NOT NULL,
	aborted       INTEGER NOT NULL,
	recorded_at   TIMESTAMP NOT NULL
);`

// DetectionRow is one persisted detection event.
type DetectionRow struct {
	ID         int64     `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"sessionID"`
	PCI        uint32    `db:"pci" json:"pci"`
	SSBIdx     uint32    `db:"ssb_idx" json:"ssbIdx"`
	SNRdB      float64   `db:"snr_db" json:"snrDB"`
	RSRPdBm    float64   `db:"rsrp_dbm" json:"rsrpDBm"`
	CellBarred bool      `db:"cell_barred" json:"cellBarred"`
	RecordedAt time.Time `db:"recorded_at" json:"recordedAt"`
}

// RunRow is one persisted scheduler run.
type RunRow struct {
	ID           int64     `db:"id" json:"id"`
	SessionID    string    `db:"session_id" json:"sessionID"`
	State        string    `db:"state" json:"state"`
	BurstsSent   uint64    `db:"bursts_sent" json:"burstsSent"`
	ElapsedSec   float64   `db:"elapsed_sec" json:"elapsedSec"`
	AvgRate      float64   `db:"avg_rate" json:"avgRate"`
	TotalSamples uint64    `db:"total_samples" json:"totalSamples"`
	AttackRatio  float64   `db:"attack_ratio" json:"attackRatio"`
	Aborted      bool      `db:"aborted" json:"aborted"`
	RecordedAt   time.Time `db:"recorded_at" json:"recordedAt"`
}

// PCISummary aggregates persisted detections per cell.
type PCISummary struct {
	PCI      uint32    `db:"pci" json:"pci"`
	Count    int64     `db:"count" json:"count"`
	AvgSNR   float64   `db:"avg_snr" json:"avgSNR"`
	AvgRSRP  float64   `db:"avg_rsrp" json:"avgRSRP"`
	LastSeen time.Time `db:"last_seen" json:"lastSeen"`
}

// AttackLedger persists detections and run statistics to SQLite.
type AttackLedger struct {
	db *sqlx.DB
}

// OpenLedger opens (and if needed creates) the ledger database at path.
// ":memory:" gives an ephemeral ledger.
func OpenLedger(path string) (*AttackLedger, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &AttackLedger{db: db}, nil
}

func (l *AttackLedger) Close() error {
	return l.db.Close()
}

func (l *AttackLedger) RecordDetection(sessionID string, res DetectionResult) error {
	_, err := l.db.Exec(
		`INSERT INTO detections (session_id, pci, ssb_idx, snr_db, rsrp_dbm, cell_barred, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, res.PCI, res.SSBIdx, res.SNRdB, res.RSRPdBm, res.MIB.CellBarred, time.Now().UTC(),
	)
	return err
}

func (l *AttackLedger) RecordRun(sessionID, state string, stats Statistics) error {
	_, err := l.db.Exec(
		`INSERT INTO runs (session_id, state, bursts_sent, elapsed_sec, avg_rate, total_samples, attack_ratio, aborted, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, state, stats.SentCount, stats.Elapsed.Seconds(), stats.AvgRate,
		stats.TotalSamples, stats.AttackRatio, stats.Aborted, time.Now().UTC(),
	)
	return err
}

// Detections returns the most recent detections, newest first.
func (l *AttackLedger) Detections(limit int) ([]DetectionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []DetectionRow
	err := l.db.Select(&rows,
		`SELECT * FROM detections ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
	return rows, err
}

// Runs returns the most recent scheduler runs, newest first.
func (l *AttackLedger) Runs(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []RunRow
	err := l.db.Select(&rows,
		`SELECT * FROM runs ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
	return rows, err
}

// Summary aggregates detections per PCI.
func (l *AttackLedger) Summary() ([]PCISummary, error) {
	var rows []PCISummary
	err := l.db.Select(&rows,
		`SELECT pci,
		        COUNT(*)         AS count,
		        AVG(snr_db)      AS avg_snr,
		        AVG(rsrp_dbm)    AS avg_rsrp,
		        MAX(recorded_at) AS last_seen
		 FROM detections GROUP BY pci ORDER BY count DESC`)
	return rows, err
}
