package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"escalade-finder/config"
	"escalade-finder/models"
	"escalade-finder/scraper/dealer"
	"escalade-finder/services"
	"escalade-finder/storage"
	"escalade-finder/utils"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		utils.Error("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dealersPath string
		outputPath  string
		keywords    string
		topN        int
		workers     int
		browser     bool
		storeDB     bool
		includeUsed bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:           "escalade-finder",
		Short:         "Scans dealer inventory pages for the lowest priced new Cadillac Escalade ESV.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			flags := cmd.Flags()
			if flags.Changed("dealers") {
				cfg.DealersPath = dealersPath
			}
			if flags.Changed("output") {
				cfg.CSVPath = outputPath
			}
			if flags.Changed("keywords") {
				cfg.ModelKeywords = config.SplitKeywords(keywords)
			}
			if flags.Changed("top") {
				cfg.TopN = topN
			}
			if flags.Changed("workers") {
				cfg.MaxWorkers = workers
			}
			if flags.Changed("browser") {
				cfg.UseBrowser = browser
			}
			if flags.Changed("store-db") {
				cfg.DBEnabled = storeDB
			}
			if flags.Changed("all") {
				cfg.NewOnly = !includeUsed
			}
			if flags.Changed("verbose") {
				cfg.Verbose = verbose
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&dealersPath, "dealers", "", "CSV file with dealer_name,inventory_url[,location]")
	f.StringVarP(&outputPath, "output", "o", "", "CSV file the ranked offers are written to")
	f.StringVar(&keywords, "keywords", "", "comma separated words every listing must mention")
	f.IntVar(&topN, "top", 0, "number of offers shown in the summary")
	f.IntVar(&workers, "workers", 0, "dealers fetched in parallel")
	f.BoolVar(&browser, "browser", false, "render pages in headless Chrome")
	f.BoolVar(&storeDB, "store-db", false, "also write the offers to PostgreSQL")
	f.BoolVar(&includeUsed, "all", false, "keep used and pre-owned listings")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	utils.SetVerbose(cfg.Verbose)
	utils.Info("Starting Cadillac Escalade ESV finder for zip %s | workers=%d browser=%v",
		cfg.ZipCode, cfg.MaxWorkers, cfg.UseBrowser)

	dealers, err := storage.LoadDealers(cfg.DealersPath)
	if err != nil {
		return err
	}

	var fetcher dealer.Fetcher
	if cfg.UseBrowser {
		bf, err := dealer.NewBrowserFetcher(cfg)
		if err != nil {
			return err
		}
		defer bf.Close()
		fetcher = bf
	} else {
		fetcher = dealer.NewHTTPFetcher(cfg)
	}

	utils.Section(fmt.Sprintf("Scanning %d dealers", len(dealers)))
	matcher := dealer.NewMatcher(cfg.ModelKeywords, cfg.NewOnly)
	result, err := dealer.NewScanner(fetcher, matcher, cfg).Scan(ctx, dealers)
	if err != nil {
		if errors.Is(err, dealer.ErrAllSourcesFailed) {
			services.PrintReport(out, result, cfg.TopN)
		}
		return err
	}

	if result.Found() {
		if err := storage.NewCSVWriter(cfg.CSVPath).Write(result.Offers); err != nil {
			return fmt.Errorf("failed to save CSV: %w", err)
		}
		if cfg.DBEnabled {
			if err := saveToPostgres(ctx, cfg, result.Offers); err != nil {
				return err
			}
		}
	}

	services.PrintReport(out, result, cfg.TopN)
	utils.Info("Done.")
	return nil
}

func saveToPostgres(ctx context.Context, cfg *config.Config, offers []models.Listing) error {
	pgWriter, err := storage.NewPostgresWriter(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgWriter.Close()

	if err := pgWriter.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := pgWriter.ReplaceOffers(ctx, offers); err != nil {
		return fmt.Errorf("failed to save offers to PostgreSQL: %w", err)
	}
	utils.Success("Saved %d offers to PostgreSQL", len(offers))
	return nil
}
