package dealer

import (
	"context"
	"sync"

	"escalade-finder/config"
	"escalade-finder/models"
	"escalade-finder/utils"
)

// WorkerPool fetches and parses dealer pages with at most MaxWorkers in
// flight. A failing dealer only produces an errored result.
type WorkerPool struct {
	fetcher Fetcher
	matcher Matcher
	cfg     *config.Config
	jobs    chan models.ScrapeJob
	results chan models.ScrapeResult
	wg      sync.WaitGroup
}

func NewWorkerPool(fetcher Fetcher, matcher Matcher, cfg *config.Config) *WorkerPool {
	return &WorkerPool{
		fetcher: fetcher,
		matcher: matcher,
		cfg:     cfg,
	}
}

// Run returns one result per dealer, in the order the dealers were given.
func (p *WorkerPool) Run(ctx context.Context, dealers []models.Dealer) []models.ScrapeResult {
	if len(dealers) == 0 {
		return nil
	}

	p.jobs = make(chan models.ScrapeJob, len(dealers))
	p.results = make(chan models.ScrapeResult, len(dealers))

	workerCount := p.cfg.MaxWorkers
	if workerCount < 1 {
		workerCount = 1
	}
	if len(dealers) < workerCount {
		workerCount = len(dealers)
	}

	p.wg.Add(workerCount)
	for i := 1; i <= workerCount; i++ {
		go p.worker(ctx, i)
	}

	for i, d := range dealers {
		p.jobs <- models.ScrapeJob{Dealer: d, Index: i}
	}
	close(p.jobs)

	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	return p.collect(len(dealers))
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		p.results <- p.scrape(ctx, id, job)
	}
}

func (p *WorkerPool) scrape(ctx context.Context, id int, job models.ScrapeJob) models.ScrapeResult {
	result := models.ScrapeResult{Index: job.Index, Dealer: job.Dealer, Stage: models.StageFetch}

	if err := utils.RandomDelay(ctx, p.cfg.MinDelay, p.cfg.MaxDelay); err != nil {
		result.Error = err
		return result
	}

	utils.Debug("worker %d: %s", id, job.Dealer.Name)
	page, err := p.fetcher.Fetch(ctx, job.Dealer.InventoryURL)
	if err != nil {
		result.Error = err
		return result
	}

	result.Stage = models.StageParse
	listings, err := ParseInventoryPage(page, job.Dealer, p.matcher)
	if err != nil {
		result.Error = err
		return result
	}

	utils.Info("Parsed %d possible offers at %s", len(listings), job.Dealer.Name)
	result.Listings = listings
	return result
}

func (p *WorkerPool) collect(n int) []models.ScrapeResult {
	ordered := make([]models.ScrapeResult, n)
	failed := 0

	for result := range p.results {
		if result.Error != nil {
			utils.Error("%s %s failed: %v", result.Stage, result.Dealer.Name, result.Error)
			failed++
		}
		ordered[result.Index] = result
	}

	utils.Success("Dealers scanned: %d | Failed: %d", n-failed, failed)
	return ordered
}
