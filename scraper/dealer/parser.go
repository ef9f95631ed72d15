package dealer

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"escalade-finder/models"
	"escalade-finder/utils"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// cardDepth is how many ancestors above a matching text node make up a
// listing card on typical dealer inventory grids.
const cardDepth = 4

const maxDescription = 140

var ErrEmptyPage = errors.New("empty inventory page")

var (
	rePrice   = regexp.MustCompile(`\$\s*([\d,]{4,8})`)
	reUsed    = regexp.MustCompile(`(?i)\b(?:used|pre-?owned|pre owned|cpo)\b`)
	reNew     = regexp.MustCompile(`(?i)\bnew\b`)
	reVIN     = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)
	reMileage = regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})+|\d+)\s*(?:mi|miles)\b`)
)

// Matcher decides which text describes the target vehicle.
type Matcher struct {
	Keywords []string
	NewOnly  bool
}

func NewMatcher(keywords []string, newOnly bool) Matcher {
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			kws = append(kws, k)
		}
	}
	return Matcher{Keywords: kws, NewOnly: newOnly}
}

// Matches reports whether text mentions every keyword, ignoring case.
func (m Matcher) Matches(text string) bool {
	if len(m.Keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, k := range m.Keywords {
		if !strings.Contains(lower, k) {
			return false
		}
	}
	return true
}

// ParseInventoryPage finds every listing card on an inventory page that
// mentions the target model and has an advertised price. It does not touch
// the network and returns the same listings for the same input.
func ParseInventoryPage(rawHTML string, d models.Dealer, m Matcher) ([]models.Listing, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, ErrEmptyPage
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("head, script, style, noscript, template").Remove()

	base, _ := url.Parse(d.InventoryURL)

	var mentions []*html.Node
	for _, root := range doc.Nodes {
		collectMentions(root, m, &mentions)
	}
	utils.Debug("Found %d potential mentions for %s", len(mentions), d.Name)

	isMention := make(map[*html.Node]bool, len(mentions))
	for _, n := range mentions {
		isMention[n] = true
	}

	seen := make(map[string]bool)
	var listings []models.Listing

	for _, node := range mentions {
		card := climb(node, cardDepth)
		if coversSeveralListings(card, isMention) {
			continue
		}
		text := nodeText(card)
		if !m.Matches(text) {
			continue
		}

		used := reUsed.MatchString(text)
		if m.NewOnly && used {
			continue
		}

		price, raw, ok := extractPrice(text)
		if !ok {
			continue
		}

		listing := models.Listing{
			Dealer:       d.Name,
			Title:        collapse(node.Data),
			Price:        price,
			RawPrice:     raw,
			URL:          listingLink(doc.FindNodes(card), base, d.InventoryURL),
			InventoryURL: d.InventoryURL,
			VIN:          extractVIN(text),
			Mileage:      extractMileage(text),
			Condition:    condition(text, used),
			Location:     d.Location,
			Description:  truncate(text, maxDescription),
		}

		key := listing.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		listings = append(listings, listing)
	}

	return listings, nil
}

func collectMentions(n *html.Node, m Matcher, out *[]*html.Node) {
	if n.Type == html.TextNode && m.Matches(n.Data) {
		*out = append(*out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMentions(c, m, out)
	}
}

func hasMention(n *html.Node, isMention map[*html.Node]bool) bool {
	if isMention[n] {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasMention(c, isMention) {
			return true
		}
	}
	return false
}

// coversSeveralListings reports whether some node under n has two or more
// children that each carry both a model mention and a price, which is what a
// grid or page wrapper looks like. A single card may repeat the model name
// as often as it likes.
func coversSeveralListings(n *html.Node, isMention map[*html.Node]bool) bool {
	priced := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if coversSeveralListings(c, isMention) {
			return true
		}
		if !hasMention(c, isMention) {
			continue
		}
		if _, _, ok := extractPrice(nodeText(c)); ok {
			priced++
		}
	}
	return priced > 1
}

func climb(n *html.Node, levels int) *html.Node {
	card := n
	for i := 0; i < levels; i++ {
		if card.Parent == nil {
			break
		}
		card = card.Parent
	}
	return card
}

// nodeText joins all descendant text with single spaces.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := collapse(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

func extractPrice(text string) (int, string, bool) {
	match := rePrice.FindStringSubmatch(text)
	if match == nil {
		return 0, "", false
	}
	v, err := strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
	if err != nil || v <= 0 {
		return 0, "", false
	}
	return v, strings.Join(strings.Fields(match[0]), ""), true
}

func extractVIN(text string) string {
	for _, candidate := range reVIN.FindAllString(text, -1) {
		if strings.ContainsAny(candidate, "ABCDEFGHJKLMNPRSTUVWXYZ") &&
			strings.ContainsAny(candidate, "0123456789") {
			return candidate
		}
	}
	return ""
}

func extractMileage(text string) int {
	for _, idx := range reMileage.FindAllStringSubmatchIndex(text, -1) {
		start := idx[2]
		prefix := strings.TrimRight(text[:start], " ")
		if strings.HasSuffix(prefix, "$") {
			continue
		}
		v, err := strconv.Atoi(strings.ReplaceAll(text[idx[2]:idx[3]], ",", ""))
		if err == nil {
			return v
		}
	}
	return 0
}

func condition(text string, used bool) string {
	switch {
	case used:
		return "used"
	case reNew.MatchString(text):
		return "new"
	default:
		return ""
	}
}

// listingLink returns the first http(s) link inside the card, resolved
// against the inventory page, or fallback when there is none.
func listingLink(card *goquery.Selection, base *url.URL, fallback string) string {
	link := fallback
	card.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		var resolved *url.URL
		var err error
		if base != nil {
			resolved, err = base.Parse(href)
		} else {
			resolved, err = url.Parse(href)
		}
		if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
			return true
		}
		link = resolved.String()
		return false
	})
	return link
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
