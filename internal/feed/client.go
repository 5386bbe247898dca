package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultURL is the MMH game roster fragment refreshed by the site itself.
const DefaultURL = "http://makemehost.com/refresh/divGames-table-mmh.php"

// Row is one observation from the roster for one hosting account.
type Row struct {
	Account string
	Realm   string
	Name    string
	Players string
}

// Client fetches and parses the hosted-game roster.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a roster client for the given URL. An empty URL
// selects DefaultURL.
func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fetch retrieves the roster and returns one Row per table row. Rows that
// cannot be parsed are logged and skipped; a fetch or document-level
// failure is returned as an error.
func (c *Client) Fetch(ctx context.Context) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster fetch returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster document: %w", err)
	}

	return extractRows(doc), nil
}

// extractRows walks the roster table. The first row is the header.
func extractRows(doc *goquery.Document) []Row {
	var rows []Row

	doc.Find("tr").Each(func(i int, sel *goquery.Selection) {
		if i == 0 {
			return
		}

		row, err := extractRow(sel)
		if err != nil {
			slog.Warn("Skipping malformed roster row", "row", i, "error", err)
			return
		}

		rows = append(rows, row)
	})

	return rows
}

func extractRow(sel *goquery.Selection) (Row, error) {
	var columns []string
	sel.Find("td").Each(func(_ int, cell *goquery.Selection) {
		columns = append(columns, strings.TrimSpace(cell.Text()))
	})

	if len(columns) < 5 {
		return Row{}, fmt.Errorf("not enough columns: got %d", len(columns))
	}

	return Row{
		Account: columns[0],
		Realm:   columns[1],
		Name:    columns[3],
		Players: columns[4],
	}, nil
}
