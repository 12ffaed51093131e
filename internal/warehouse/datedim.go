//-------------------------------------------------------------------------
//
// ecomdw - E-commerce Analytics Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/ecomdw/internal/db"
	"github.com/pgEdge/ecomdw/internal/logging"
)

// Day-of-week convention: ISO-8601, 1=Monday .. 7=Sunday. Downstream
// consumers must not assume any other numbering.

const insertDateSQL = `
INSERT INTO dim_date (date_key, full_date, year, quarter, month, day_of_month, day_of_week)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (date_key) DO NOTHING`

// DateKey encodes a date as an 8-digit YYYYMMDD integer.
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Quarter returns the calendar quarter (1-4) of a date.
func Quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// ISOWeekday returns the ISO-8601 weekday number of a date (1=Monday .. 7=Sunday).
func ISOWeekday(t time.Time) int {
	return (int(t.Weekday())+6)%7 + 1
}

// PopulateDateDim inserts one dim_date row per calendar day from start to end
// inclusive. Days whose keys already exist are skipped, so re-running over an
// overlapping range only fills the gaps. Returns the number of rows inserted.
func PopulateDateDim(ctx context.Context, dbc DB, start, end time.Time) (int64, error) {
	start = truncateToDay(start)
	end = truncateToDay(end)
	if end.Before(start) {
		return 0, fmt.Errorf("invalid date range: end %s precedes start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	days := int(end.Sub(start).Hours()/24) + 1
	logging.Info().
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Int("days", days).
		Msg("Populating date dimension")

	var inserted int64
	batch := &pgx.Batch{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		batch.Queue(insertDateSQL,
			DateKey(d), d, d.Year(), Quarter(d), int(d.Month()), d.Day(), ISOWeekday(d))

		if batch.Len() >= 500 {
			n, err := flushDateBatch(ctx, dbc, batch)
			inserted += n
			if err != nil {
				return inserted, err
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		n, err := flushDateBatch(ctx, dbc, batch)
		inserted += n
		if err != nil {
			return inserted, err
		}
	}

	logging.Info().Int64("inserted", inserted).Msg("Date dimension populated")
	return inserted, nil
}

func flushDateBatch(ctx context.Context, dbc DB, batch *pgx.Batch) (int64, error) {
	results := dbc.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return inserted, db.MapError(err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
