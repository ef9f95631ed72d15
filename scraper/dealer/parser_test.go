package dealer

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"escalade-finder/models"
	"escalade-finder/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	utils.SetOutput(io.Discard)
}

var testDealer = models.Dealer{
	Name:         "Sheehy Cadillac",
	InventoryURL: "https://dealer.example/new-inventory/index.htm",
	Location:     "Richmond, VA",
}

func card(id, title, price, specs string) string {
	return fmt.Sprintf(`
<div class="vehicle-card">
  <div class="card-body">
    <div class="card-header"><h2><a href="/new/%s">%s</a></h2></div>
    <div class="pricing"><span class="price">%s</span></div>
    <ul class="specs"><li>%s</li></ul>
  </div>
</div>`, id, title, price, specs)
}

func page(cards ...string) string {
	return `<html><head><title>New Inventory</title>
<script>var featured = "Cadillac Escalade ESV $1,000";</script>
<style>.price{color:red}</style></head>
<body><div class="inventory-grid">` + strings.Join(cards, "\n") + `</div></body></html>`
}

func TestParseInventoryPage_ExtractsListings(t *testing.T) {
	html := page(
		card("1", "New 2025 Cadillac Escalade ESV Premium Luxury", "$81,400", "Black Raven"),
		card("2", "New 2025 Cadillac Escalade ESV Sport", "$79,995", "VIN 1GYS4KKL1RR123456 · 5 mi"),
		card("3", "New 2025 Cadillac Escalade ESV Platinum", "$ 85,200", "Crystal White"),
	)

	listings, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"Escalade", "ESV"}, true))
	require.NoError(t, err)
	require.Len(t, listings, 3)

	prices := []int{listings[0].Price, listings[1].Price, listings[2].Price}
	assert.Equal(t, []int{81400, 79995, 85200}, prices)

	sport := listings[1]
	assert.Equal(t, "Sheehy Cadillac", sport.Dealer)
	assert.Equal(t, "New 2025 Cadillac Escalade ESV Sport", sport.Title)
	assert.Equal(t, "$79,995", sport.RawPrice)
	assert.Equal(t, "https://dealer.example/new/2", sport.URL)
	assert.Equal(t, testDealer.InventoryURL, sport.InventoryURL)
	assert.Equal(t, "1GYS4KKL1RR123456", sport.VIN)
	assert.Equal(t, 5, sport.Mileage)
	assert.Equal(t, "new", sport.Condition)
	assert.Equal(t, "Richmond, VA", sport.Location)

	assert.Equal(t, "$85,200", listings[2].RawPrice)
}

func TestParseInventoryPage_SkipsUsedWhenNewOnly(t *testing.T) {
	html := page(
		card("1", "2023 Cadillac Escalade ESV Luxury", "$68,000", "Certified Pre-Owned"),
		card("2", "2025 Cadillac Escalade ESV Luxury", "$90,100", "In stock"),
	)

	listings, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"escalade", "esv"}, true))
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 90100, listings[0].Price)

	all, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"escalade", "esv"}, false))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "used", all[0].Condition)
}

func TestParseInventoryPage_IgnoresOtherModelsAndMissingPrices(t *testing.T) {
	html := page(
		card("1", "New 2025 Cadillac Escalade Premium", "$99,000", "Short wheelbase"),
		card("2", "New 2025 Cadillac XT6", "$55,000", "AWD"),
		card("3", "New 2025 Cadillac Escalade ESV V-Series", "Call for price", "Midnight"),
	)

	listings, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"escalade", "esv"}, true))
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestParseInventoryPage_CollapsesDuplicateMentions(t *testing.T) {
	html := page(card("1", "New 2025 Cadillac Escalade ESV Premium Luxury", "$81,400", "Escalade ESV 4WD"))

	listings, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"escalade", "esv"}, true))
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestParseInventoryPage_Idempotent(t *testing.T) {
	html := page(
		card("1", "New 2025 Cadillac Escalade ESV Premium Luxury", "$81,400", "Black Raven"),
		card("2", "New 2025 Cadillac Escalade ESV Sport", "$79,995", "Argent Silver"),
	)
	m := NewMatcher([]string{"escalade", "esv"}, true)

	first, err := ParseInventoryPage(html, testDealer, m)
	require.NoError(t, err)
	second, err := ParseInventoryPage(html, testDealer, m)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseInventoryPage_SkipsPageWrappers(t *testing.T) {
	html := `<html><head><title>New Cadillac Escalade ESV for sale</title></head><body>
<h1>New Cadillac Escalade ESV Inventory</h1>
<div class="inventory-grid">` +
		card("1", "New 2025 Cadillac Escalade ESV Premium Luxury", "$81,400", "Black") +
		card("2", "New 2025 Cadillac Escalade ESV Sport", "$79,995", "Silver") +
		card("3", "New 2025 Cadillac Escalade ESV Platinum", "$85,200", "White") +
		`</div></body></html>`

	listings, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"escalade", "esv"}, true))
	require.NoError(t, err)
	require.Len(t, listings, 3)
	for _, l := range listings {
		assert.NotEqual(t, "New Cadillac Escalade ESV Inventory", l.Title)
	}
}

func TestParseInventoryPage_KeepsCardRepeatingModelName(t *testing.T) {
	html := `<html><body><div class="inventory-grid">
<div class="vehicle-card">
  <div class="card-body">
    <div class="card-header">
      <h2><a href="/new/a">New 2025 Cadillac Escalade ESV Premium Luxury</a></h2>
      <h3>Escalade ESV 4WD</h3>
    </div>
    <div class="pricing"><span class="price">$79,995</span></div>
    <ul class="specs"><li>Escalade ESV 6.2L V8</li></ul>
    <div class="actions"><a class="btn" href="/new/a#availability">Check Escalade ESV availability</a></div>
  </div>
</div>` +
		card("b", "New 2025 Cadillac Escalade ESV Sport", "$85,200", "Silver") +
		`</div></body></html>`

	listings, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"escalade", "esv"}, true))
	require.NoError(t, err)

	var prices []int
	for _, l := range listings {
		prices = append(prices, l.Price)
	}
	assert.Contains(t, prices, 79995)
	assert.Contains(t, prices, 85200)
	assert.Equal(t, 79995, minPrice(listings))
}

func TestParseInventoryPage_KeepsMSRPAndSalePriceCard(t *testing.T) {
	html := page(card("1", "New 2025 Cadillac Escalade ESV Luxury", "MSRP $92,000 Sale $88,500", "Escalade ESV Luxury package"))

	listings, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"escalade", "esv"}, true))
	require.NoError(t, err)
	require.NotEmpty(t, listings)
	assert.Equal(t, 92000, listings[0].Price)
}

func TestParseInventoryPage_SkipsWrapperAroundSamePricedCards(t *testing.T) {
	html := `<html><body><h1>New Cadillac Escalade ESV Inventory</h1><div class="inventory-grid">` +
		card("1", "New 2025 Cadillac Escalade ESV Luxury", "$88,000", "Black") +
		card("2", "New 2025 Cadillac Escalade ESV Luxury", "$88,000", "White") +
		`</div></body></html>`

	listings, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"escalade", "esv"}, true))
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "https://dealer.example/new/1", listings[0].URL)
	assert.Equal(t, "https://dealer.example/new/2", listings[1].URL)
}

func minPrice(listings []models.Listing) int {
	if len(listings) == 0 {
		return 0
	}
	lowest := listings[0].Price
	for _, l := range listings[1:] {
		if l.Price < lowest {
			lowest = l.Price
		}
	}
	return lowest
}

func TestParseInventoryPage_EmptyPage(t *testing.T) {
	_, err := ParseInventoryPage("  \n", testDealer, NewMatcher([]string{"escalade"}, true))
	require.ErrorIs(t, err, ErrEmptyPage)
}

func TestParseInventoryPage_NoLinkFallsBackToInventory(t *testing.T) {
	html := `<html><body><section><div><div><p><span>New Cadillac Escalade ESV</span></p><p>$84,010</p></div></div></section></body></html>`

	listings, err := ParseInventoryPage(html, testDealer, NewMatcher([]string{"escalade", "esv"}, true))
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, testDealer.InventoryURL, listings[0].URL)
	assert.Equal(t, 84010, listings[0].Price)
}

func TestMatcher(t *testing.T) {
	m := NewMatcher([]string{" Escalade ", "ESV", ""}, true)
	assert.Equal(t, []string{"escalade", "esv"}, m.Keywords)
	assert.True(t, m.Matches("2025 CADILLAC ESCALADE ESV"))
	assert.False(t, m.Matches("2025 Cadillac Escalade"))
	assert.False(t, NewMatcher(nil, true).Matches("anything"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 140))
	long := strings.Repeat("a", 200)
	got := truncate(long, 140)
	assert.Len(t, got, 140)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestExtractMileage(t *testing.T) {
	assert.Equal(t, 12345, extractMileage("Odometer 12,345 miles"))
	assert.Equal(t, 0, extractMileage("$79,995 MSRP"))
	assert.Equal(t, 7, extractMileage("$80,000 7 mi"))
}
