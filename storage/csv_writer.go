package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"escalade-finder/models"
	"escalade-finder/utils"
)

// CSVWriter saves the ranked offers of a run to a CSV file.
type CSVWriter struct {
	path string
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

var csvHeader = []string{
	"dealer_name", "title", "price", "raw_price", "listing_url", "inventory_url",
	"vin", "mileage", "condition", "location", "description",
}

// Write replaces the file with one row per offer, creating the parent
// directory if needed.
func (w *CSVWriter) Write(offers []models.Listing) error {
	if len(offers) == 0 {
		utils.Warn("No offers to write")
		return nil
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create output dir: %w", err)
		}
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	for _, l := range offers {
		mileage := ""
		if l.Mileage > 0 {
			mileage = strconv.Itoa(l.Mileage)
		}
		if err := writer.Write([]string{
			l.Dealer,
			l.Title,
			strconv.Itoa(l.Price),
			l.RawPrice,
			l.URL,
			l.InventoryURL,
			l.VIN,
			mileage,
			l.Condition,
			l.Location,
			l.Description,
		}); err != nil {
			return fmt.Errorf("csv write error: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}

	utils.Success("Saved %d offers → %s", len(offers), w.path)
	return nil
}
