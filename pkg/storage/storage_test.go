package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func record(id string, score int) tenders.TenderRecord {
	return tenders.TenderRecord{
		ID:            id,
		Title:         "Tender " + id,
		Country:       "DE",
		BuyerName:     "Buyer " + id,
		CPVCodes:      []string{},
		URL:           "https://ted.europa.eu/en/notice/-/detail/" + id,
		PriorityScore: &score,
	}
}

func batchAt(day int, records ...tenders.TenderRecord) tenders.ScanBatch {
	at := time.Date(2026, time.March, day, 9, 0, 0, 0, time.UTC)
	return tenders.NewScanBatch(tenders.SourceTEDAPI, at, records)
}

func TestSaveBatchReportsNewTenders(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first, err := db.SaveBatch(ctx, batchAt(1, record("A", 25), record("B", 5)), "data/scan-2026-03-01.json")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !reflect.DeepEqual(first.NewTenderIDs, []string{"A", "B"}) {
		t.Fatalf("expected A and B to be new, got %v", first.NewTenderIDs)
	}

	second, err := db.SaveBatch(ctx, batchAt(2, record("B", 12), record("C", 30)), "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !reflect.DeepEqual(second.NewTenderIDs, []string{"C"}) {
		t.Fatalf("expected only C to be new, got %v", second.NewTenderIDs)
	}
	if first.ScanID == second.ScanID || second.ScanID == "" {
		t.Fatalf("expected distinct scan ids, got %q and %q", first.ScanID, second.ScanID)
	}

	scan, items, err := db.GetScan(ctx, second.ScanID)
	if err != nil {
		t.Fatalf("get scan: %v", err)
	}
	if scan.NewTenders != 1 || scan.Stats.Total != 2 || scan.Stats.HighPriority != 1 {
		t.Fatalf("unexpected scan %+v", scan)
	}
	if len(items) != 2 || items[0].TenderID != "B" || items[0].IsNew || !items[1].IsNew {
		t.Fatalf("unexpected scan tenders %+v", items)
	}
	if items[0].Priority != tenders.PriorityMedium {
		t.Fatalf("expected B to be medium, got %s", items[0].Priority)
	}
}

func TestSaveBatchRepeatedIDInBatch(t *testing.T) {
	db := openTestDB(t)
	res, err := db.SaveBatch(context.Background(), batchAt(1, record("A", 1), record("A", 2)), "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !reflect.DeepEqual(res.NewTenderIDs, []string{"A"}) {
		t.Fatalf("expected A once, got %v", res.NewTenderIDs)
	}
}

func TestSaveBatchSkipsGeneratedIDs(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first, err := db.SaveBatch(ctx, batchAt(1, record("UNKNOWN-1", 25), record("A", 5)), "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !reflect.DeepEqual(first.NewTenderIDs, []string{"A"}) {
		t.Fatalf("expected only A to be new, got %v", first.NewTenderIDs)
	}

	other := record("UNKNOWN-1", 30)
	other.Title = "A different tender without id"
	second, err := db.SaveBatch(ctx, batchAt(2, other, record("B", 5)), "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !reflect.DeepEqual(second.NewTenderIDs, []string{"B"}) {
		t.Fatalf("expected only B to be new, got %v", second.NewTenderIDs)
	}

	_, items, err := db.GetScan(ctx, second.ScanID)
	if err != nil {
		t.Fatalf("get scan: %v", err)
	}
	if len(items) != 2 || items[0].TenderID != "UNKNOWN-1" || items[0].IsNew || items[0].Title != other.Title {
		t.Fatalf("expected the id-less tender to be kept with its scan, got %+v", items)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Tenders != 2 {
		t.Fatalf("expected only A and B to be tracked, got %d", stats.Tenders)
	}

	db.SetGeneratedIDPrefix("MANUAL")
	third, err := db.SaveBatch(ctx, batchAt(3, record("MANUAL-7", 1), record("UNKNOWN-1", 1)), "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !reflect.DeepEqual(third.NewTenderIDs, []string{"UNKNOWN-1"}) {
		t.Fatalf("expected UNKNOWN-1 to be tracked under another prefix, got %v", third.NewTenderIDs)
	}
}

func TestListScansAndLatest(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, _, err := db.LatestScan(ctx); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound on an empty db, got %v", err)
	}

	for day := 1; day <= 3; day++ {
		if _, err := db.SaveBatch(ctx, batchAt(day, record("A", day)), ""); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	scans, err := db.ListScans(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scans) != 2 || scans[0].ScannedAt.Day() != 3 || scans[1].ScannedAt.Day() != 2 {
		t.Fatalf("expected the two newest scans, got %+v", scans)
	}

	latest, items, err := db.LatestScan(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != scans[0].ID || len(items) != 1 || items[0].Score != 3 {
		t.Fatalf("unexpected latest scan %+v %+v", latest, items)
	}

	if _, _, err := db.GetScan(ctx, "missing"); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
}

func TestListNewTenders(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := db.SaveBatch(ctx, batchAt(1, record("A", 5)), ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := db.SaveBatch(ctx, batchAt(5, record("A", 40), record("B", 10)), ""); err != nil {
		t.Fatalf("save: %v", err)
	}

	all, err := db.ListNewTenders(ctx, time.Time{}, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].TenderID != "B" || all[1].TenderID != "A" {
		t.Fatalf("expected B then A, got %+v", all)
	}
	if all[1].BestScore != 40 || all[1].ScanCount != 2 || all[1].LastSeenAt.Day() != 5 {
		t.Fatalf("expected A to track its best score and scans, got %+v", all[1])
	}

	recent, err := db.ListNewTenders(ctx, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 1 || recent[0].TenderID != "B" {
		t.Fatalf("expected only B, got %+v", recent)
	}
}

func TestPruneScansKeepsNewest(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for day := 1; day <= 5; day++ {
		if _, err := db.SaveBatch(ctx, batchAt(day, record("A", day)), ""); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	removed, err := db.PruneScans(ctx, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 scans removed, got %d", removed)
	}
	scans, err := db.ListScans(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scans) != 2 || scans[1].ScannedAt.Day() != 4 {
		t.Fatalf("expected days 5 and 4 to remain, got %+v", scans)
	}

	// Pruned history must not make old tenders look new again.
	res, err := db.SaveBatch(ctx, batchAt(6, record("A", 1)), "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(res.NewTenderIDs) != 0 {
		t.Fatalf("expected no new tenders, got %v", res.NewTenderIDs)
	}
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if _, err := db.SaveBatch(ctx, batchAt(1, record("A", 25), record("B", 15), record("C", 0)), ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := HistoryStats{Scans: 1, Tenders: 3, HighPriority: 1, MediumPriority: 1, LowPriority: 1}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestBatchFiles(t *testing.T) {
	dir := t.TempDir()
	batch := batchAt(7, record("A", 20))

	path, err := WriteBatchFile(dir, "automated-scan", batch)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Base(path) != "automated-scan-2026-03-07.json" {
		t.Fatalf("unexpected file name %s", path)
	}
	got, err := ReadBatchFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, batch) {
		t.Fatalf("batch changed on disk:\n got %+v\nwant %+v", got, batch)
	}

	if _, err := WriteBatchFile(dir, "full-scan", batchAt(9)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := WriteBatchFile(dir, "scan", batchAt(8)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes-2026-12-31.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	latest, err := LatestBatchFile(dir)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if filepath.Base(latest) != "full-scan-2026-03-09.json" {
		t.Fatalf("unexpected latest file %s", latest)
	}
	latest, err = LatestBatchFile(dir, "automated-scan")
	if err != nil || filepath.Base(latest) != "automated-scan-2026-03-07.json" {
		t.Fatalf("unexpected latest automated file %s (%v)", latest, err)
	}

	if _, err := ReadBatchFile(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
	if _, err := LatestBatchFile(t.TempDir()); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound for an empty dir, got %v", err)
	}
}
