package models

import "strconv"

// Dealer is one inventory page to scan.
type Dealer struct {
	Name         string
	InventoryURL string
	Location     string
}

// Listing is one advertised vehicle pulled from a dealer page.
type Listing struct {
	Dealer       string
	Title        string
	Price        int
	RawPrice     string
	URL          string
	InventoryURL string
	VIN          string
	Mileage      int
	Condition    string
	Location     string
	Description  string
}

type ScrapeJob struct {
	Dealer Dealer
	Index  int
}

type ScrapeResult struct {
	Index    int
	Dealer   Dealer
	Listings []Listing
	Error    error
	Stage    string
}

const (
	StageFetch = "fetch"
	StageParse = "parse"
)

type SourceError struct {
	Dealer string
	URL    string
	Stage  string
	Err    error
}

func (e SourceError) Error() string {
	return e.Stage + " " + e.Dealer + " (" + e.URL + "): " + e.Err.Error()
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// ScanResult is the outcome of one run. Best is nil when nothing matched.
type ScanResult struct {
	Best         *Listing
	Offers       []Listing
	Considered   int
	SourcesTotal int
	SourcesOK    int
	Failures     []SourceError
}

func (r ScanResult) Found() bool {
	return r.Best != nil
}

// Key identifies a listing for de-duplication: the VIN when one was found,
// otherwise dealer, card text and price together.
func (l Listing) Key() string {
	if l.VIN != "" {
		return l.Dealer + "|vin|" + l.VIN
	}
	return l.Dealer + "|" + l.Description + "|" + strconv.Itoa(l.Price)
}
