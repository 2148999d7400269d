package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sw33tLie/tenderscope/pkg/sources"
	"github.com/sw33tLie/tenderscope/pkg/storage"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
)

// ErrNoInput is returned when Run is given no input locations.
var ErrNoInput = errors.New("no input locations")

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config holds everything Run needs for one scan.
type Config struct {
	Inputs      []sources.Input
	Fetcher     sources.Fetcher           // required for http(s) locations
	Normalizer  tenders.NormalizerOptions // zero value uses the defaults
	Scoring     tenders.ScoringConfig
	Concurrency int              // defaults to 5 if <= 0
	Now         func() time.Time // optional; batch timestamp
	Log         Logger           // optional; nil = no logging

	// OutDir, when set, receives <FilePrefix>-YYYY-MM-DD.json.
	OutDir     string
	FilePrefix string

	// DB, when set, records the scan and reports which tenders are new.
	DB *storage.DB

	// OnInputDone is called per location after it was parsed (from worker
	// goroutines). Nil = no callback.
	OnInputDone func(location string, raws int, err error)
}

// Result holds the outcome of one scan.
type Result struct {
	Batch        tenders.ScanBatch
	FilePath     string
	ScanID       string
	NewTenderIDs []string
	Malformed    int
	Errors       []error // non-fatal errors
}

// IsNew reports whether the tender id was first seen in this scan. It is
// always false when the scan was not recorded.
func (r *Result) IsNew(id string) bool {
	for _, n := range r.NewTenderIDs {
		if n == id {
			return true
		}
	}
	return false
}

// job is one location of one input. index fixes its place in the output.
type job struct {
	index    int
	adapter  sources.Adapter
	location string
}

type jobResult struct {
	raws []tenders.Raw
	err  error
}

// Run loads every input, normalizes, scores and deduplicates the records
// and builds the scan batch. A failing input is logged and skipped unless
// every input failed.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	scoring, err := cfg.Scoring.Validate()
	if err != nil {
		return nil, err
	}

	var jobs []job
	for _, in := range cfg.Inputs {
		if in.Adapter == nil {
			return nil, fmt.Errorf("%w: input without adapter", sources.ErrUnknownSource)
		}
		for _, loc := range in.Locations {
			jobs = append(jobs, job{index: len(jobs), adapter: in.Adapter, location: loc})
		}
	}
	if len(jobs) == 0 {
		return nil, ErrNoInput
	}

	results := processInputsConcurrently(ctx, jobs, cfg.Fetcher, concurrency, log, cfg.OnInputDone)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}
	var raws []tenders.Raw
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			result.Errors = append(result.Errors, r.err)
			continue
		}
		raws = append(raws, r.raws...)
	}
	if failed == len(jobs) {
		return nil, fmt.Errorf("all %d inputs failed: %w", failed, errors.Join(result.Errors...))
	}

	normalizer := tenders.NewNormalizer(cfg.Normalizer)
	records, errs := normalizer.NormalizeAll(raws)
	for _, e := range errs {
		log.Warnf("Skipping record: %v", e)
	}
	result.Malformed = len(errs)

	scored, err := tenders.ScoreAll(records, scoring)
	if err != nil {
		return nil, err
	}
	unique := tenders.Deduplicate(scored)
	if dropped := len(scored) - len(unique); dropped > 0 {
		log.Debugf("Dropped %d duplicate tenders", dropped)
	}

	result.Batch = tenders.NewScanBatch(sourceLabel(cfg.Inputs), now(), tenders.SortByScore(unique))
	log.Infof("Scanned %d tenders from %d inputs (%d high, %d medium, %d low)",
		result.Batch.Stats.Total, len(jobs)-failed,
		result.Batch.Stats.HighPriority, result.Batch.Stats.MediumPriority, result.Batch.Stats.LowPriority)

	if cfg.OutDir != "" {
		path, err := storage.WriteBatchFile(cfg.OutDir, cfg.FilePrefix, result.Batch)
		if err != nil {
			return result, fmt.Errorf("writing scan file: %w", err)
		}
		result.FilePath = path
	}

	if cfg.DB != nil {
		cfg.DB.SetGeneratedIDPrefix(normalizer.Options().IDPrefix)
		saved, err := cfg.DB.SaveBatch(ctx, result.Batch, result.FilePath)
		if err != nil {
			return result, fmt.Errorf("recording scan: %w", err)
		}
		result.ScanID = saved.ScanID
		result.NewTenderIDs = saved.NewTenderIDs
	}

	return result, nil
}

// processInputsConcurrently loads and parses locations using a worker pool.
// The returned slice is indexed like jobs.
func processInputsConcurrently(
	ctx context.Context,
	jobs []job,
	fetcher sources.Fetcher,
	concurrency int,
	log Logger,
	onDone func(string, int, error),
) []jobResult {
	results := make([]jobResult, len(jobs))
	jobChan := make(chan job, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < concurrency && i < len(jobs); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobChan {
				raws, err := processOneInput(ctx, j, fetcher, log)
				// Each worker writes only its own job's slot.
				results[j.index] = jobResult{raws: raws, err: err}
				if onDone != nil {
					onDone(j.location, len(raws), err)
				}
			}
		}()
	}

	for _, j := range jobs {
		jobChan <- j
	}
	close(jobChan)
	wg.Wait()

	return results
}

// processOneInput loads a location and parses every document in it. A
// document that fails to parse is skipped; the location only fails when
// it cannot be loaded or none of its documents parse.
func processOneInput(ctx context.Context, j job, fetcher sources.Fetcher, log Logger) ([]tenders.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := sources.Load(ctx, j.location, fetcher)
	if err != nil {
		log.Warnf("Failed to load %s: %v", j.location, err)
		return nil, fmt.Errorf("%s: %w", j.location, err)
	}

	var raws []tenders.Raw
	var parseErrs []error
	for _, doc := range docs {
		r, err := j.adapter.Parse(ctx, doc)
		if err != nil {
			log.Warnf("Failed to parse %s as %s: %v", doc.Name, j.adapter.Name(), err)
			parseErrs = append(parseErrs, err)
			continue
		}
		raws = append(raws, r...)
	}
	if len(docs) > 0 && len(parseErrs) == len(docs) {
		return nil, fmt.Errorf("%s: %w", j.location, errors.Join(parseErrs...))
	}
	log.Debugf("Read %d raw records from %s (%d documents)", len(raws), j.location, len(docs))
	return raws, nil
}

// sourceLabel joins the distinct adapter names in input order.
func sourceLabel(inputs []sources.Input) string {
	var names []string
	seen := map[string]bool{}
	for _, in := range inputs {
		if len(in.Locations) == 0 || in.Adapter == nil {
			continue
		}
		name := in.Adapter.Name()
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return strings.Join(names, "+")
}
