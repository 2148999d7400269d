package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// ErrBatchNotFound is returned when a scan id or batch file does not exist.
var ErrBatchNotFound = errors.New("scan batch not found")

// DefaultHistoryLimit is the number of scans PruneScans keeps when called
// with keep <= 0.
const DefaultHistoryLimit = 90

// seenLookupChunk bounds the number of ids bound into a single IN clause.
const seenLookupChunk = 500

type DB struct {
	sql *sql.DB

	// generatedIDPrefix marks synthesized tender ids, which are not
	// tracked across scans.
	generatedIDPrefix string
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS scans (
  id              TEXT PRIMARY KEY,
  scanned_at      TEXT NOT NULL,
  source          TEXT NOT NULL,
  total           INTEGER NOT NULL,
  high_priority   INTEGER NOT NULL,
  medium_priority INTEGER NOT NULL,
  low_priority    INTEGER NOT NULL,
  new_tenders     INTEGER NOT NULL DEFAULT 0,
  file_path       TEXT
);
CREATE INDEX IF NOT EXISTS idx_scans_time ON scans(scanned_at);
CREATE TABLE IF NOT EXISTS scan_tenders (
  scan_id    TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
  position   INTEGER NOT NULL,
  tender_id  TEXT NOT NULL,
  title      TEXT NOT NULL,
  country    TEXT NOT NULL,
  buyer_name TEXT NOT NULL,
  score      INTEGER NOT NULL,
  priority   TEXT NOT NULL CHECK (priority IN ('high','medium','low')),
  url        TEXT,
  is_new     INTEGER NOT NULL CHECK (is_new IN (0,1)),
  PRIMARY KEY (scan_id, position)
);
CREATE INDEX IF NOT EXISTS idx_scan_tenders_tender ON scan_tenders(tender_id);
CREATE TABLE IF NOT EXISTS tenders_seen (
  tender_id     TEXT PRIMARY KEY,
  title         TEXT NOT NULL,
  country       TEXT NOT NULL,
  buyer_name    TEXT NOT NULL,
  url           TEXT,
  best_score    INTEGER NOT NULL,
  scan_count    INTEGER NOT NULL DEFAULT 1,
  first_seen_at TEXT NOT NULL,
  last_seen_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_seen_first ON tenders_seen(first_seen_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db, generatedIDPrefix: tenders.DefaultIDPrefix}, nil
}

// SetGeneratedIDPrefix sets the prefix the normalizer uses for synthesized
// ids. Records carrying such an id are stored with their scan but never
// reported as new, since the same id names a different tender next time.
func (d *DB) SetGeneratedIDPrefix(prefix string) {
	if prefix == "" {
		prefix = tenders.DefaultIDPrefix
	}
	d.generatedIDPrefix = prefix
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// SaveBatch records a scan and its tenders in one transaction. It returns
// the scan id and the ids of tenders no earlier scan contained, in batch
// order.
func (d *DB) SaveBatch(ctx context.Context, batch tenders.ScanBatch, filePath string) (SaveResult, error) {
	at, err := batch.Time()
	if err != nil {
		return SaveResult{}, fmt.Errorf("invalid batch timestamp %q: %w", batch.Timestamp, err)
	}
	stamp := formatTime(at)
	scanID := uuid.NewString()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return SaveResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	tracked := make([]bool, len(batch.Tenders))
	ids := make([]string, 0, len(batch.Tenders))
	for i, t := range batch.Tenders {
		if tenders.IsGeneratedID(t.ID, d.generatedIDPrefix) {
			continue
		}
		tracked[i] = true
		ids = append(ids, t.ID)
	}
	var known map[string]bool
	known, err = seenIDs(ctx, tx, ids)
	if err != nil {
		return SaveResult{}, err
	}

	result := SaveResult{ScanID: scanID, NewTenderIDs: []string{}}
	isNew := make([]bool, len(batch.Tenders))
	for i, t := range batch.Tenders {
		if !tracked[i] || known[t.ID] {
			continue
		}
		// A batch may repeat an id when it was built without deduplication.
		known[t.ID] = true
		isNew[i] = true
		result.NewTenderIDs = append(result.NewTenderIDs, t.ID)
	}

	var query string
	var args []interface{}
	query, args, err = sq.Insert("scans").
		Columns("id", "scanned_at", "source", "total", "high_priority", "medium_priority", "low_priority", "new_tenders", "file_path").
		Values(scanID, stamp, batch.Source, batch.Stats.Total, batch.Stats.HighPriority, batch.Stats.MediumPriority, batch.Stats.LowPriority, len(result.NewTenderIDs), nullIfEmpty(filePath)).
		ToSql()
	if err != nil {
		return SaveResult{}, err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return SaveResult{}, err
	}

	for i, t := range batch.Tenders {
		query, args, err = sq.Insert("scan_tenders").
			Columns("scan_id", "position", "tender_id", "title", "country", "buyer_name", "score", "priority", "url", "is_new").
			Values(scanID, i, t.ID, t.Title, t.Country, t.BuyerName, t.ScoreValue(), string(t.Priority()), nullIfEmpty(t.URL), boolToInt(isNew[i])).
			ToSql()
		if err != nil {
			return SaveResult{}, err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return SaveResult{}, err
		}
		if !tracked[i] {
			continue
		}

		query, args, err = sq.Insert("tenders_seen").
			Columns("tender_id", "title", "country", "buyer_name", "url", "best_score", "scan_count", "first_seen_at", "last_seen_at").
			Values(t.ID, t.Title, t.Country, t.BuyerName, nullIfEmpty(t.URL), t.ScoreValue(), 1, stamp, stamp).
			Suffix(`ON CONFLICT(tender_id) DO UPDATE SET
  title = excluded.title,
  country = excluded.country,
  buyer_name = excluded.buyer_name,
  url = excluded.url,
  best_score = MAX(tenders_seen.best_score, excluded.best_score),
  scan_count = tenders_seen.scan_count + 1,
  last_seen_at = MAX(tenders_seen.last_seen_at, excluded.last_seen_at)`).
			ToSql()
		if err != nil {
			return SaveResult{}, err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return SaveResult{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return SaveResult{}, err
	}
	return result, nil
}

// seenIDs reports which of ids already exist in tenders_seen.
func seenIDs(ctx context.Context, tx *sql.Tx, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	for start := 0; start < len(ids); start += seenLookupChunk {
		end := start + seenLookupChunk
		if end > len(ids) {
			end = len(ids)
		}
		query, args, err := sq.Select("tender_id").From("tenders_seen").
			Where(sq.Eq{"tender_id": ids[start:end]}).
			ToSql()
		if err != nil {
			return nil, err
		}
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			out[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

var scanColumns = []string{"id", "scanned_at", "source", "total", "high_priority", "medium_priority", "low_priority", "new_tenders", "file_path"}

// ListScans returns the most recent scans, newest first.
func (d *DB) ListScans(ctx context.Context, limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query, args, err := sq.Select(scanColumns...).From("scans").
		OrderBy("scanned_at DESC", "rowid DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := []Scan{}
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, s)
	}
	return scans, rows.Err()
}

// GetScan returns one scan with its tenders in batch order.
func (d *DB) GetScan(ctx context.Context, id string) (*Scan, []ScanTender, error) {
	query, args, err := sq.Select(scanColumns...).From("scans").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, nil, err
	}
	s, err := scanScan(d.sql.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	query, args, err = sq.Select("tender_id", "title", "country", "buyer_name", "score", "priority", "url", "is_new").
		From("scan_tenders").
		Where(sq.Eq{"scan_id": id}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, nil, err
	}
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	items := []ScanTender{}
	for rows.Next() {
		var (
			t        ScanTender
			priority string
			link     sql.NullString
			isNew    int
		)
		if err := rows.Scan(&t.TenderID, &t.Title, &t.Country, &t.BuyerName, &t.Score, &priority, &link, &isNew); err != nil {
			return nil, nil, err
		}
		t.Priority = tenders.Priority(priority)
		t.URL = link.String
		t.IsNew = isNew == 1
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return &s, items, nil
}

// LatestScan returns the most recent scan with its tenders.
func (d *DB) LatestScan(ctx context.Context) (*Scan, []ScanTender, error) {
	scans, err := d.ListScans(ctx, 1)
	if err != nil {
		return nil, nil, err
	}
	if len(scans) == 0 {
		return nil, nil, ErrBatchNotFound
	}
	return d.GetScan(ctx, scans[0].ID)
}

// ListNewTenders returns tenders first seen at or after since, most recent
// first. A zero since lists everything.
func (d *DB) ListNewTenders(ctx context.Context, since time.Time, limit int) ([]SeenTender, error) {
	if limit <= 0 {
		limit = 50
	}
	b := sq.Select("tender_id", "title", "country", "buyer_name", "url", "best_score", "scan_count", "first_seen_at", "last_seen_at").
		From("tenders_seen")
	if !since.IsZero() {
		b = b.Where(sq.GtOrEq{"first_seen_at": formatTime(since)})
	}
	query, args, err := b.OrderBy("first_seen_at DESC", "best_score DESC", "tender_id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SeenTender{}
	for rows.Next() {
		var (
			t           SeenTender
			link        sql.NullString
			first, last string
		)
		if err := rows.Scan(&t.TenderID, &t.Title, &t.Country, &t.BuyerName, &link, &t.BestScore, &t.ScanCount, &first, &last); err != nil {
			return nil, err
		}
		t.URL = link.String
		t.FirstSeenAt = parseTime(first)
		t.LastSeenAt = parseTime(last)
		out = append(out, t)
	}
	return out, rows.Err()
}

// PruneScans deletes all but the newest keep scans together with their
// tender rows. Seen tenders are kept so that new-tender detection does not
// start over.
func (d *DB) PruneScans(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = DefaultHistoryLimit
	}
	recent := sq.Select("id").From("scans").
		OrderBy("scanned_at DESC", "rowid DESC").
		Limit(uint64(keep))
	query, args, err := sq.Delete("scans").
		Where(sq.Expr("id NOT IN (?)", recent)).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := d.sql.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetStats aggregates the whole history.
func (d *DB) GetStats(ctx context.Context) (HistoryStats, error) {
	var s HistoryStats
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM scans").Scan(&s.Scans); err != nil {
		return s, err
	}
	row := d.sql.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN best_score >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN best_score >= ? AND best_score < ? THEN 1 ELSE 0 END), 0)
		FROM tenders_seen
	`, tenders.HighThreshold, tenders.MediumThreshold, tenders.HighThreshold)
	if err := row.Scan(&s.Tenders, &s.HighPriority, &s.MediumPriority); err != nil {
		return s, err
	}
	s.LowPriority = s.Tenders - s.HighPriority - s.MediumPriority
	return s, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScan(row rowScanner) (Scan, error) {
	var (
		s     Scan
		stamp string
		file  sql.NullString
	)
	if err := row.Scan(&s.ID, &stamp, &s.Source, &s.Stats.Total, &s.Stats.HighPriority, &s.Stats.MediumPriority, &s.Stats.LowPriority, &s.NewTenders, &file); err != nil {
		return Scan{}, err
	}
	s.ScannedAt = parseTime(stamp)
	s.FilePath = file.String
	return s, nil
}

// Timestamps are stored as fixed-width UTC text so that they sort
// lexically.
func formatTime(t time.Time) string {
	return t.UTC().Format(tenders.TimestampLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
