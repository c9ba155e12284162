package storage

import (
	"context"
)

type Repository struct {
	Store *Store
}

func NewRepository(store *Store) *Repository {
	return &Repository{Store: store}
}

func (r *Repository) GetMetricRule(ctx context.Context, id string) (MetricRule, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT id, user_id, is_active, metric_id, operator, threshold
		FROM metric_rules WHERE id=$1`, id)
	var rec MetricRule
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.IsActive, &rec.MetricID, &rec.Operator, &rec.Threshold); err != nil {
		return MetricRule{}, ErrNotFound
	}
	return rec, nil
}

// GetMetricSource resolves the metric's SQL and target-database connection
// through its notebook. A missing metric, notebook or database all surface as
// ErrIncompleteConfig so the caller never dereferences a dangling link.
func (r *Repository) GetMetricSource(ctx context.Context, metricID string) (MetricSource, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT m.name, m.sql_text, d.connection_json
		FROM metrics m
		LEFT JOIN notebooks n ON n.id = m.notebook_id
		LEFT JOIN user_databases d ON d.id = n.database_id
		WHERE m.id=$1`, metricID)
	var name, sqlText *string
	var conn []byte
	if err := row.Scan(&name, &sqlText, &conn); err != nil {
		return MetricSource{}, ErrIncompleteConfig
	}
	if name == nil || sqlText == nil || len(conn) == 0 {
		return MetricSource{}, ErrIncompleteConfig
	}
	return MetricSource{Name: *name, SQL: *sqlText, ConnectionJSON: conn}, nil
}

func (r *Repository) GetKpiRule(ctx context.Context, id string) (KpiRule, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT id, user_id, is_active, database_id, name, sql_text, operator, threshold
		FROM custom_kpi_rules WHERE id=$1`, id)
	var rec KpiRule
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.IsActive, &rec.DatabaseID, &rec.Name, &rec.SQL, &rec.Operator, &rec.Threshold); err != nil {
		return KpiRule{}, ErrNotFound
	}
	return rec, nil
}

func (r *Repository) GetConnection(ctx context.Context, databaseID string) ([]byte, error) {
	row := r.Store.Pool.QueryRow(ctx, `SELECT connection_json FROM user_databases WHERE id=$1`, databaseID)
	var conn []byte
	if err := row.Scan(&conn); err != nil {
		return nil, ErrNotFound
	}
	if len(conn) == 0 {
		return nil, ErrNotFound
	}
	return conn, nil
}

func (r *Repository) AppendHistory(ctx context.Context, rec HistoryRecord) error {
	var runID any
	if rec.RunID != "" {
		runID = rec.RunID
	}
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO alert_history (rule_id, status, run_id, details, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,now())`,
		rec.RuleID, rec.Status, runID, rec.Details, rec.UserID)
	return err
}
