package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// BatchFilePrefixes are the file name prefixes LatestBatchFile looks for
// when none are given.
var BatchFilePrefixes = []string{"automated-scan", "full-scan", "scan"}

var batchDateRe = regexp.MustCompile(`-(\d{4}-\d{2}-\d{2})\.json$`)

// BatchFileName returns <prefix>-YYYY-MM-DD.json for the batch's day (UTC).
func BatchFileName(prefix string, batch tenders.ScanBatch) (string, error) {
	at, err := batch.Time()
	if err != nil {
		return "", fmt.Errorf("invalid batch timestamp %q: %w", batch.Timestamp, err)
	}
	if prefix == "" {
		prefix = "scan"
	}
	return fmt.Sprintf("%s-%s.json", prefix, at.UTC().Format("2006-01-02")), nil
}

// WriteBatchFile writes the batch as indented JSON into dir, creating dir
// if needed. A second scan on the same day replaces the file.
func WriteBatchFile(dir, prefix string, batch tenders.ScanBatch) (string, error) {
	name, err := BatchFileName(prefix, batch)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	return path, WriteBatchFileTo(path, batch)
}

// WriteBatchFileTo writes the batch to an explicit path.
func WriteBatchFileTo(path string, batch tenders.ScanBatch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadBatchFile reads a batch written by WriteBatchFile.
func ReadBatchFile(path string) (tenders.ScanBatch, error) {
	var batch tenders.ScanBatch
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return batch, fmt.Errorf("%w: %s", ErrBatchNotFound, path)
	}
	if err != nil {
		return batch, err
	}
	if err := json.Unmarshal(data, &batch); err != nil {
		return batch, fmt.Errorf("%s: %w", path, err)
	}
	if batch.Tenders == nil {
		batch.Tenders = []tenders.TenderRecord{}
	}
	return batch, nil
}

// LatestBatchFile returns the newest batch file in dir whose name starts
// with one of prefixes. Files are ordered by the date in their name, then
// by name.
func LatestBatchFile(dir string, prefixes ...string) (string, error) {
	if len(prefixes) == 0 {
		prefixes = BatchFilePrefixes
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: no directory %s", ErrBatchNotFound, dir)
	}
	if err != nil {
		return "", err
	}

	type candidate struct{ name, date string }
	var found []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := batchDateRe.FindStringSubmatch(e.Name())
		if m == nil || !hasPrefix(e.Name(), prefixes) {
			continue
		}
		found = append(found, candidate{name: e.Name(), date: m[1]})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w: no scan files in %s", ErrBatchNotFound, dir)
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].date != found[j].date {
			return found[i].date > found[j].date
		}
		return found[i].name > found[j].name
	})
	return filepath.Join(dir, found[0].name), nil
}

func hasPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p+"-") {
			return true
		}
	}
	return false
}
