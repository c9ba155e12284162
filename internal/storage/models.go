package storage

import "time"

type MetricRule struct {
	ID        string
	UserID    string
	IsActive  bool
	MetricID  string
	Operator  string
	Threshold float64
}

// MetricSource is the evaluable half of a metric rule, resolved through the
// metric -> notebook -> database chain.
type MetricSource struct {
	Name           string
	SQL            string
	ConnectionJSON []byte
}

type KpiRule struct {
	ID         string
	UserID     string
	IsActive   bool
	DatabaseID string
	Name       string
	SQL        string
	Operator   string
	Threshold  float64
}

// HistoryRecord is one append-only audit row per job attempt. RunID is empty
// for self-evaluated kinds and carries the correlation id for delegated ones.
type HistoryRecord struct {
	RuleID    string
	Status    string
	RunID     string
	Details   []byte
	UserID    string
	CreatedAt time.Time
}
