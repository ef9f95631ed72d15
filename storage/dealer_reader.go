package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"escalade-finder/models"
	"escalade-finder/utils"
)

var ErrNoDealers = errors.New("dealers file has no usable rows")

// LoadDealers reads a CSV with a dealer_name,inventory_url[,location] header.
// Rows without a name or an http(s) URL are skipped.
func LoadDealers(path string) ([]models.Dealer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s not found, create it with dealer_name,inventory_url: %w", path, err)
	}
	defer f.Close()

	dealers, err := ReadDealers(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	utils.Info("Loaded %d dealers from %s", len(dealers), path)
	return dealers, nil
}

func ReadDealers(r io.Reader) ([]models.Dealer, error) {
	cr := csv.NewReader(stripBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoDealers
	}
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameCol, okName := cols["dealer_name"]
	urlCol, okURL := cols["inventory_url"]
	if !okName || !okURL {
		return nil, fmt.Errorf("header must contain dealer_name and inventory_url, got %v", header)
	}
	locCol, hasLoc := cols["location"]

	field := func(rec []string, i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var dealers []models.Dealer
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			utils.Warn("dealers line %d: %v", line, err)
			continue
		}

		name := field(rec, nameCol)
		inv := field(rec, urlCol)
		if name == "" || inv == "" {
			continue
		}
		u, err := url.Parse(inv)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			utils.Warn("dealers line %d: skipping %q, not an http(s) URL", line, inv)
			continue
		}

		d := models.Dealer{Name: name, InventoryURL: inv}
		if hasLoc {
			d.Location = field(rec, locCol)
		}
		dealers = append(dealers, d)
	}

	if len(dealers) == 0 {
		return nil, ErrNoDealers
	}
	return dealers, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rn, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rn != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
