package store

// aggregate.go exposes the grouping/aggregation capability consumed by the
// reporting layer. Every identifier that reaches SQL text comes from a
// fixed allow-list; caller-supplied values travel only as bind parameters.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/athioak7/carly/internal/vehicle"
)

// AggFunc selects the aggregate computed over each group.
type AggFunc string

const (
	AggCount AggFunc = "count"
	AggAvg   AggFunc = "avg"
	AggMax   AggFunc = "max"
)

// Bucket collapses date_added groups to calendar periods.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
	BucketYear  Bucket = "year"
)

// groupableColumns is the allow-list for GROUP BY identifiers.
var groupableColumns = map[string]bool{
	"category": true, "brand": true, "model": true, "color": true,
	"fuel": true, "engine_cc": true, "horsepower": true, "doors": true,
	"sunroof": true, "cases": true, "manufacture_year": true,
	"status": true, "kilometers": true, "price": true, "date_added": true,
}

// numericColumns is the allow-list for avg/max targets and MaxOf.
var numericColumns = map[string]bool{
	"engine_cc": true, "horsepower": true, "doors": true, "cases": true,
	"manufacture_year": true, "kilometers": true, "price": true,
}

// bucketExpr maps a Bucket to a fixed SQL expression over date_added.
// Week buckets snap to the preceding Monday.
var bucketExpr = map[Bucket]string{
	BucketDay:   "date_added",
	BucketWeek:  "date(date_added, 'weekday 0', '-6 days')",
	BucketMonth: "strftime('%Y-%m-01', date_added)",
	BucketYear:  "strftime('%Y-01-01', date_added)",
}

// AggregateQuery describes one safe group-by query.
type AggregateQuery struct {
	// GroupBy lists allow-listed column names, at least one.
	GroupBy []string

	// Func defaults to AggCount. AggAvg and AggMax require Target.
	Func AggFunc

	// Target is the numeric column aggregated by avg/max.
	Target string

	// Category optionally restricts rows to one category.
	Category *vehicle.Category

	// DateBucket collapses a date_added grouping to calendar periods.
	DateBucket Bucket

	// From/To optionally bound date_added (inclusive).
	From, To time.Time
}

// AggregateRow is one result group: the grouped key values in GroupBy
// order plus the aggregate value.
type AggregateRow struct {
	Keys  []string `json:"keys"`
	Value float64  `json:"value"`
}

// Aggregate runs the described group-by query. Unknown columns, functions
// or buckets are rejected before any SQL is built.
func (s *Store) Aggregate(ctx context.Context, q AggregateQuery) ([]AggregateRow, error) {
	if len(q.GroupBy) == 0 {
		return nil, fmt.Errorf("aggregate: no group columns")
	}

	groupExprs := make([]string, len(q.GroupBy))
	for i, col := range q.GroupBy {
		if !groupableColumns[col] {
			return nil, fmt.Errorf("aggregate: column %q is not groupable", col)
		}
		expr := col
		if col == "date_added" && q.DateBucket != "" {
			be, ok := bucketExpr[q.DateBucket]
			if !ok {
				return nil, fmt.Errorf("aggregate: unknown bucket %q", q.DateBucket)
			}
			expr = be
		}
		groupExprs[i] = expr
	}

	fn := q.Func
	if fn == "" {
		fn = AggCount
	}
	var aggExpr string
	switch fn {
	case AggCount:
		aggExpr = "COUNT(id)"
	case AggAvg, AggMax:
		if !numericColumns[q.Target] {
			return nil, fmt.Errorf("aggregate: target %q is not a numeric column", q.Target)
		}
		aggExpr = fmt.Sprintf("%s(%s)", strings.ToUpper(string(fn)), q.Target)
	default:
		return nil, fmt.Errorf("aggregate: unknown function %q", fn)
	}

	var conds []string
	var args []any
	if q.Category != nil {
		if !q.Category.Valid() {
			return nil, fmt.Errorf("aggregate: unknown category %q", *q.Category)
		}
		conds = append(conds, "category = ?")
		args = append(args, string(*q.Category))
	}
	if !q.From.IsZero() {
		conds = append(conds, "date_added >= ?")
		args = append(args, q.From.Format(dateLayout))
	}
	if !q.To.IsZero() {
		conds = append(conds, "date_added <= ?")
		args = append(args, q.To.Format(dateLayout))
	}

	var where string
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	groups := strings.Join(groupExprs, ", ")
	query := fmt.Sprintf("SELECT %s, %s FROM vehicles%s GROUP BY %s ORDER BY %s",
		groups, aggExpr, where, groups, groups)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "aggregate", Err: err}
	}
	defer rows.Close()

	var out []AggregateRow
	keys := make([]sql.NullString, len(groupExprs))
	dest := make([]any, len(groupExprs)+1)
	for i := range keys {
		dest[i] = &keys[i]
	}
	var value sql.NullFloat64
	dest[len(groupExprs)] = &value

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, &StorageError{Op: "aggregate scan", Err: err}
		}
		row := AggregateRow{Keys: make([]string, len(keys)), Value: value.Float64}
		for i, k := range keys {
			row.Keys[i] = k.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "aggregate", Err: err}
	}
	return out, nil
}

// MinDate returns the earliest date_added, used for date-range defaults.
// ok is false when the store is empty.
func (s *Store) MinDate(ctx context.Context) (time.Time, bool, error) {
	var min sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(date_added) FROM vehicles`).Scan(&min); err != nil {
		return time.Time{}, false, &StorageError{Op: "min date", Err: err}
	}
	if !min.Valid {
		return time.Time{}, false, nil
	}
	t, err := parseDate(min.String)
	if err != nil {
		return time.Time{}, false, &StorageError{Op: "min date", Err: err}
	}
	return t, true, nil
}

// MaxOf returns the maximum value of an allow-listed numeric column, or 0
// for an empty store.
func (s *Store) MaxOf(ctx context.Context, field string) (int64, error) {
	if !numericColumns[field] {
		return 0, fmt.Errorf("max of: column %q is not numeric", field)
	}
	var max sql.NullInt64
	query := fmt.Sprintf(`SELECT MAX(%s) FROM vehicles`, field)
	if err := s.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, &StorageError{Op: "max of", Err: err}
	}
	return max.Int64, nil
}
