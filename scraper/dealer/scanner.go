package dealer

import (
	"context"
	"errors"

	"escalade-finder/config"
	"escalade-finder/models"
	"escalade-finder/services"
	"escalade-finder/utils"
)

var (
	ErrNoSources        = errors.New("no dealer sources configured")
	ErrAllSourcesFailed = errors.New("no dealer inventory page could be fetched")
)

// Scanner runs one scan across every configured dealer.
type Scanner struct {
	pool *WorkerPool
}

func NewScanner(fetcher Fetcher, matcher Matcher, cfg *config.Config) *Scanner {
	return &Scanner{pool: NewWorkerPool(fetcher, matcher, cfg)}
}

// Scan returns the cheapest matching listing across all dealers. Unreachable
// or unparseable dealers are skipped and listed in the result's Failures.
// Finding nothing is not an error; failing to fetch every page is.
func (s *Scanner) Scan(ctx context.Context, dealers []models.Dealer) (models.ScanResult, error) {
	if len(dealers) == 0 {
		return models.ScanResult{}, ErrNoSources
	}

	results := s.pool.Run(ctx, dealers)
	if err := ctx.Err(); err != nil {
		return models.ScanResult{}, err
	}

	var (
		listings []models.Listing
		failures []models.SourceError
		fetched  int
		ok       int
	)
	for _, r := range results {
		if r.Error == nil || r.Stage == models.StageParse {
			fetched++
		}
		if r.Error != nil {
			failures = append(failures, models.SourceError{
				Dealer: r.Dealer.Name,
				URL:    r.Dealer.InventoryURL,
				Stage:  r.Stage,
				Err:    r.Error,
			})
			continue
		}
		ok++
		listings = append(listings, r.Listings...)
	}

	result := services.BuildResult(listings, len(dealers), ok, failures)
	if fetched == 0 {
		return result, ErrAllSourcesFailed
	}

	if !result.Found() {
		utils.Warn("No matching vehicles were found. You might need to adjust the dealers file or keywords.")
	}
	return result, nil
}
