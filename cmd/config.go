package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sw33tLie/tenderscope/internal/utils"
	"github.com/sw33tLie/tenderscope/pkg/sources"
	"github.com/sw33tLie/tenderscope/pkg/sources/manual"
	"github.com/sw33tLie/tenderscope/pkg/sources/tedapi"
	"github.com/sw33tLie/tenderscope/pkg/sources/tedhtml"
	"github.com/sw33tLie/tenderscope/pkg/sources/tedxml"
	"github.com/sw33tLie/tenderscope/pkg/storage"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
	"github.com/sw33tLie/tenderscope/pkg/whttp"
)

// Input kinds accepted by scan flags and schedule.inputs.
const (
	inputAPI    = "api"
	inputXML    = "xml"
	inputHTML   = "html"
	inputManual = "manual"
)

var inputKinds = []string{inputAPI, inputXML, inputHTML, inputManual}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scoring.target_countries", []string{"DE", "AT", "CH", "LI"})
	v.SetDefault("scoring.cpv_prefixes", []string{
		"72000000", "72260000", "72263000", "72268000",
		"48000000", "48700000", "48900000",
		"79999100", "79999000",
		"72317000", "72320000", "72322000",
	})
	v.SetDefault("scoring.keywords.high", []string{
		"form", "handwriting", "OCR", "digitization", "Formular", "Handschrift", "Digitalisierung",
	})
	v.SetDefault("scoring.keywords.medium", []string{
		"document", "processing", "automation", "Dokument", "Verarbeitung", "Automatisierung",
	})

	v.SetDefault("relevance.keywords.high", []string{
		"formular", "formulare", "digitalisierung", "digitization", "ocr", "handschrift",
		"handwriting", "scanning", "scan", "erfassung", "capture", "texterkennung", "recognition",
	})
	v.SetDefault("relevance.keywords.medium", []string{
		"dokument", "document", "verarbeitung", "processing", "papier", "paper",
		"daten", "data", "eingabe", "input", "archiv", "archive",
	})
	v.SetDefault("relevance.threshold", tenders.DefaultRelevanceThreshold)

	def := tenders.DefaultNormalizerOptions()
	v.SetDefault("normalize.primary_language", def.PrimaryLanguage)
	v.SetDefault("normalize.secondary_language", def.SecondaryLanguage)
	v.SetDefault("normalize.base_url", def.BaseURL)
	v.SetDefault("normalize.detail_url", def.DetailURL)
	v.SetDefault("normalize.id_prefix", def.IDPrefix)

	v.SetDefault("output.data_dir", "data")
	v.SetDefault("output.prefix", "automated-scan")
	v.SetDefault("db.path", "")
	v.SetDefault("history.keep", storage.DefaultHistoryLimit)

	v.SetDefault("schedule.time", "09:00")
	for _, kind := range inputKinds {
		v.SetDefault("schedule.inputs."+kind, []string{})
	}

	v.SetDefault("server.username", "")
	v.SetDefault("server.password", "")

	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.retries", 3)
	v.SetDefault("http.user_agent", whttp.DefaultUserAgent)
}

func scoringConfig(v *viper.Viper) tenders.ScoringConfig {
	return tenders.ScoringConfig{
		TargetCountries:        utils.SplitList(v.GetStringSlice("scoring.target_countries")),
		HighPriorityKeywords:   utils.SplitList(v.GetStringSlice("scoring.keywords.high")),
		MediumPriorityKeywords: utils.SplitList(v.GetStringSlice("scoring.keywords.medium")),
		TargetCPVPrefixes:      utils.SplitList(v.GetStringSlice("scoring.cpv_prefixes")),
	}
}

func relevanceConfig(v *viper.Viper) tenders.RelevanceConfig {
	return tenders.RelevanceConfig{
		HighKeywords:   utils.SplitList(v.GetStringSlice("relevance.keywords.high")),
		MediumKeywords: utils.SplitList(v.GetStringSlice("relevance.keywords.medium")),
		Threshold:      v.GetInt("relevance.threshold"),
	}
}

func normalizerOptions(v *viper.Viper) (tenders.NormalizerOptions, error) {
	opts := tenders.NormalizerOptions{
		PrimaryLanguage:   v.GetString("normalize.primary_language"),
		SecondaryLanguage: v.GetString("normalize.secondary_language"),
		BaseURL:           v.GetString("normalize.base_url"),
		DetailURL:         v.GetString("normalize.detail_url"),
		IDPrefix:          v.GetString("normalize.id_prefix"),
	}
	if opts.DetailURL != "" && strings.Count(opts.DetailURL, "%s") != 1 {
		return opts, fmt.Errorf("invalid normalize.detail_url %q: needs exactly one %%s", opts.DetailURL)
	}
	return opts, nil
}

func httpOptions(v *viper.Viper) (whttp.Options, error) {
	timeout, err := time.ParseDuration(v.GetString("http.timeout"))
	if err != nil {
		return whttp.Options{}, fmt.Errorf("invalid http.timeout: %w", err)
	}
	return whttp.Options{
		Proxy:     v.GetString("http.proxy"),
		Timeout:   timeout,
		RetryMax:  v.GetInt("http.retries"),
		UserAgent: v.GetString("http.user_agent"),
	}, nil
}

func newAdapter(kind string, opts tenders.NormalizerOptions) (sources.Adapter, error) {
	switch kind {
	case inputAPI:
		return tedapi.New(), nil
	case inputXML:
		return tedxml.New(), nil
	case inputHTML:
		return tedhtml.New(opts.BaseURL)
	case inputManual:
		return manual.New(), nil
	}
	return nil, fmt.Errorf("%w: %q (expected one of %v)", sources.ErrUnknownSource, kind, inputKinds)
}

// buildInputs pairs each input kind with its locations, in inputKinds
// order. Kinds without locations are left out.
func buildInputs(locations map[string][]string, opts tenders.NormalizerOptions) ([]sources.Input, error) {
	for kind := range locations {
		if _, err := newAdapter(kind, opts); err != nil {
			return nil, err
		}
	}
	var inputs []sources.Input
	for _, kind := range inputKinds {
		locs := utils.SplitList(locations[kind])
		if len(locs) == 0 {
			continue
		}
		adapter, err := newAdapter(kind, opts)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, sources.Input{Adapter: adapter, Locations: locs})
	}
	return inputs, nil
}

func dataDir(v *viper.Viper) string {
	if dir := v.GetString("output.data_dir"); dir != "" {
		return dir
	}
	return "data"
}

func dbFilePath(v *viper.Viper) (string, error) {
	return utils.GetAbsDBPath(v.GetString("db.path"), dataDir(v))
}

// openExistingDB opens the database for reading; it is not created.
func openExistingDB(v *viper.Viper) (*storage.DB, string, error) {
	path, err := dbFilePath(v)
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, path, fmt.Errorf("database not found: %s", path)
	}
	db, err := storage.Open(path)
	return db, path, err
}
