package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sw33tLie/tenderscope/pkg/storage"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

func newTestServer(t *testing.T, user, pass string) (*httptest.Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ts := httptest.NewServer(New(db, user, pass).Router())
	t.Cleanup(ts.Close)
	return ts, db
}

func saveScan(t *testing.T, db *storage.DB, day int, ids ...string) string {
	t.Helper()
	var recs []tenders.TenderRecord
	for i, id := range ids {
		score := 10 * (i + 1)
		recs = append(recs, tenders.TenderRecord{ID: id, Title: "T " + id, Country: "DE", BuyerName: "B", CPVCodes: []string{}, PriorityScore: &score})
	}
	batch := tenders.NewScanBatch(tenders.SourceTEDAPI, time.Date(2026, 4, day, 9, 0, 0, 0, time.UTC), recs)
	res, err := db.SaveBatch(context.Background(), batch, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return res.ScanID
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestScanEndpoints(t *testing.T) {
	ts, db := newTestServer(t, "", "")

	if code := getJSON(t, ts.URL+"/api/scans/latest", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 without scans, got %d", code)
	}

	saveScan(t, db, 1, "A")
	second := saveScan(t, db, 2, "A", "B")

	var scans []storage.Scan
	if code := getJSON(t, ts.URL+"/api/scans?limit=1", &scans); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if len(scans) != 1 || scans[0].ID != second || scans[0].NewTenders != 1 {
		t.Fatalf("unexpected scans %+v", scans)
	}

	var latest scanResponse
	if code := getJSON(t, ts.URL+"/api/scans/latest", &latest); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if latest.Scan.ID != second || len(latest.Tenders) != 2 || !latest.Tenders[1].IsNew {
		t.Fatalf("unexpected latest scan %+v", latest)
	}

	var byID scanResponse
	if code := getJSON(t, ts.URL+"/api/scans/"+second, &byID); code != http.StatusOK || byID.Scan.ID != second {
		t.Fatalf("unexpected scan by id %d %+v", code, byID)
	}
	if code := getJSON(t, ts.URL+"/api/scans/unknown", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/scans?limit=x", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestNewTendersEndpoint(t *testing.T) {
	ts, db := newTestServer(t, "", "")
	saveScan(t, db, 1, "A")
	saveScan(t, db, 10, "A", "B")

	var items []storage.SeenTender
	if code := getJSON(t, ts.URL+"/api/tenders/new?since=2026-04-05", &items); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if len(items) != 1 || items[0].TenderID != "B" {
		t.Fatalf("expected only B, got %+v", items)
	}
	if code := getJSON(t, ts.URL+"/api/tenders/new?since=yesterday", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestBasicAuth(t *testing.T) {
	ts, _ := newTestServer(t, "admin", "secret")

	if code := getJSON(t, ts.URL+"/api/stats", nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/stats", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with credentials, got %d", resp.StatusCode)
	}
}
