package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sw33tLie/tenderscope/pkg/pipeline"
	"github.com/sw33tLie/tenderscope/pkg/report"
	"github.com/sw33tLie/tenderscope/pkg/sources"
	"github.com/sw33tLie/tenderscope/pkg/sources/tedapi"
	"github.com/sw33tLie/tenderscope/pkg/tenders"
	"github.com/sw33tLie/tenderscope/pkg/whttp"
)

func main() {
	// Usage: go run . -input saved-response.json

	inputFlag := flag.String("input", "", "TED search API response (file or URL)")
	topFlag := flag.Int("top", 10, "Number of tenders to print")

	// Parse the command-line flags
	flag.Parse()

	if *inputFlag == "" {
		fmt.Println("Input is required. Please provide it using the -input flag.")
		return
	}

	client, err := whttp.NewClient(whttp.Options{Timeout: 30 * time.Second})
	if err != nil {
		log.Fatal(err)
	}

	// Every adapter works the same way; the profile is yours to define.
	res, err := pipeline.Run(context.Background(), pipeline.Config{
		Inputs:  []sources.Input{{Adapter: tedapi.New(), Locations: []string{*inputFlag}}},
		Fetcher: client,
		Scoring: tenders.ScoringConfig{
			TargetCountries:        []string{"DE", "AT"},
			HighPriorityKeywords:   []string{"OCR", "Formular"},
			MediumPriorityKeywords: []string{"Dokument"},
			TargetCPVPrefixes:      []string{"79999100"},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	report.PrintLeaderboard(os.Stdout, res.Batch.Tenders, *topFlag, nil)
}
