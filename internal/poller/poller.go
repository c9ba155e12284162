package poller

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
)

var (
	ErrNoRows     = errors.New("sql query returned no rows")
	ErrNonNumeric = errors.New("sql query did not return a numeric value")
)

type Poller struct{}

func New() *Poller {
	return &Poller{}
}

// Poll opens a fresh connection for this one evaluation, runs the query and
// returns the first column of the first row as a float64. The handle is torn
// down on every exit path.
func (p *Poller) Poll(ctx context.Context, desc Descriptor, query string) (float64, error) {
	driver, dsn, err := buildDSN(desc)
	if err != nil {
		return 0, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return 0, fmt.Errorf("open %s connection: %w", driver, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("poll query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("poll query: %w", err)
		}
		return 0, ErrNoRows
	}
	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("poll columns: %w", err)
	}
	values := make([]any, len(cols))
	for i := range values {
		var v any
		values[i] = &v
	}
	if err := rows.Scan(values...); err != nil {
		return 0, fmt.Errorf("scan poll row: %w", err)
	}
	value, ok := toFloat(*(values[0].(*any)))
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrNonNumeric
	}
	return value, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
