package services

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"escalade-finder/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// BuildResult cleans the combined listings of a run and ranks them by price.
func BuildResult(listings []models.Listing, sourcesTotal, sourcesOK int, failures []models.SourceError) models.ScanResult {
	offers := CleanListings(listings)

	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if a.Dealer != b.Dealer {
			return a.Dealer < b.Dealer
		}
		return a.Title < b.Title
	})

	result := models.ScanResult{
		Offers:       offers,
		Considered:   len(offers),
		SourcesTotal: sourcesTotal,
		SourcesOK:    sourcesOK,
		Failures:     failures,
	}
	if len(offers) > 0 {
		best := offers[0]
		result.Best = &best
	}
	return result
}

func CleanListings(listings []models.Listing) []models.Listing {
	seen := make(map[string]bool)
	cleaned := make([]models.Listing, 0, len(listings))

	for _, l := range listings {
		l.Dealer = strings.TrimSpace(l.Dealer)
		l.Title = strings.TrimSpace(l.Title)
		l.URL = strings.TrimSpace(l.URL)
		l.Description = strings.TrimSpace(l.Description)

		if l.Title == "" || l.Price <= 0 {
			continue
		}

		key := l.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, l)
	}

	return cleaned
}

// PrintReport writes the human readable summary of a run.
func PrintReport(w io.Writer, result models.ScanResult, topN int) {
	if !result.Found() {
		fmt.Fprintln(w, "No offers found.")
		fmt.Fprintf(w, "Dealers scanned: %d of %d\n", result.SourcesOK, result.SourcesTotal)
		printFailures(w, result.Failures)
		return
	}

	best := result.Best
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("BEST PRICE FOUND")
	t.AppendRows([]table.Row{
		{"Dealer", best.Dealer},
		{"Price", FormatPrice(best.Price)},
		{"Listing", best.URL},
		{"Title", best.Title},
	})
	if best.VIN != "" {
		t.AppendRow(table.Row{"VIN", best.VIN})
	}
	if best.Location != "" {
		t.AppendRow(table.Row{"Location", best.Location})
	}
	t.AppendFooter(table.Row{"Considered", fmt.Sprintf("%d offers from %d/%d dealers", result.Considered, result.SourcesOK, result.SourcesTotal)})
	t.SetStyle(table.StyleRounded)
	t.Render()

	topN = min(max(topN, 0), len(result.Offers))
	top := table.NewWriter()
	top.SetOutputMirror(w)
	top.SetTitle(fmt.Sprintf("Top %d offers", topN))
	top.AppendHeader(table.Row{"#", "Price", "Dealer", "URL", "Desc"})
	for i, o := range result.Offers[:topN] {
		top.AppendRow(table.Row{i + 1, FormatPrice(o.Price), o.Dealer, o.URL, truncateText(o.Description, 60)})
	}
	top.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	top.SetStyle(table.StyleRounded)
	top.Render()

	printFailures(w, result.Failures)
}

func printFailures(w io.Writer, failures []models.SourceError) {
	if len(failures) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Skipped dealers")
	t.AppendHeader(table.Row{"Dealer", "Stage", "Error"})
	for _, f := range failures {
		t.AppendRow(table.Row{f.Dealer, f.Stage, truncateText(f.Err.Error(), 70)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// FormatPrice renders whole dollars as $79,995.
func FormatPrice(price int) string {
	if price < 0 {
		return "-" + FormatPrice(-price)
	}
	digits := strconv.Itoa(price)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}

func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
