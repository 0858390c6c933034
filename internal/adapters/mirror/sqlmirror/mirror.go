// Package sqlmirror keeps the latest successful reading of every source in a SQL table.
// It stores one row per source and never keeps history.
package sqlmirror

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vshulcz/airgauge/internal/domain"
	"github.com/vshulcz/airgauge/internal/misc"
)

var columns = []string{"source", "observed_at", "score", "temp", "humid", "co2", "voc", "pm25", "updated_at"}

type Mirror struct {
	db      *sql.DB
	upsert  string
	dialect Dialect
	now     func() time.Time
}

// New wraps an already migrated database.
func New(db *sql.DB, d Dialect) *Mirror {
	return &Mirror{db: db, dialect: d, upsert: upsertQuery(d), now: time.Now}
}

// Open connects to dsn, waits for the database with retries and applies migrations.
func Open(ctx context.Context, dsn string) (*Mirror, error) {
	d, conn, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driverName(), conn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	if d == SQLite {
		db.SetMaxOpenConns(1)
	}
	op := func() error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return Migrate(ctx, db, d)
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, IsRetryable, op); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init %s: %w", d, err)
	}
	return New(db, d), nil
}

func upsertQuery(d Dialect) string {
	ph := make([]string, len(columns))
	for i := range columns {
		ph[i] = d.placeholder(i + 1)
	}
	set := make([]string, 0, len(columns)-1)
	for _, c := range columns[1:] {
		set = append(set, c+"=EXCLUDED."+c)
	}
	return fmt.Sprintf("INSERT INTO latest_readings (%s) VALUES (%s) ON CONFLICT (source) DO UPDATE SET %s",
		strings.Join(columns, ", "), strings.Join(ph, ", "), strings.Join(set, ", "))
}

// Dialect reports which backend the mirror writes to.
func (m *Mirror) Dialect() Dialect { return m.dialect }

// Notify upserts every successful reading of c in one transaction. Failed sources keep their previous row.
func (m *Mirror) Notify(ctx context.Context, c domain.Cycle) error {
	var ok []domain.SourceResult
	for _, r := range c.Results {
		if r.Err == nil && r.Reading != nil {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return nil
	}
	updated := m.now().UTC()

	attempt := func() error {
		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()
		for _, r := range ok {
			rd := r.Reading
			if _, err := tx.ExecContext(ctx, m.upsert,
				string(r.Source), rd.Timestamp.UTC(), rd.Score, rd.Temp, rd.Humid, rd.CO2, rd.VOC, rd.PM25, updated,
			); err != nil {
				return fmt.Errorf("upsert %s: %w", r.Source, err)
			}
		}
		return tx.Commit()
	}
	return misc.Retry(ctx, misc.DefaultBackoff, IsRetryable, attempt)
}

func (m *Mirror) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
