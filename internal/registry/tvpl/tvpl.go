// Package tvpl drives the secondary business registry's search portal.
package tvpl

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tracuu/internal/browse"
	"tracuu/internal/logging"
	"tracuu/internal/registry"
	"tracuu/internal/services"
	"tracuu/internal/taxid"
)

const componentName = "tvpl"

// Client searches the portal by identifier and parses the linked
// detail view.
type Client struct {
	searchURL string
	session   *browse.Session
	logger    *slog.Logger
}

var _ registry.Client = (*Client)(nil)

// New builds a client submitting to searchURL.
func New(searchURL string, session *browse.Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		searchURL: strings.TrimSpace(searchURL),
		session:   session,
		logger:    logging.NewComponentLogger(logger, componentName),
	}
}

// Name implements registry.Client.
func (c *Client) Name() string { return componentName }

// SearchByIdentifier loads the result list for the identifier, picks
// the row whose identifier cell matches digit-wise (first row when
// nothing matches exactly), and follows its detail link.
func (c *Client) SearchByIdentifier(ctx context.Context, identifier string) (*registry.Record, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, services.Wrap(services.ErrNoResults, componentName, "search", "empty identifier", nil)
	}

	query := url.Values{
		"timtheo": {"ma-so-thue"},
		"tukhoa":  {identifier},
	}
	page, err := c.session.FetchPage(ctx, c.searchURL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	table := page.Doc.Find("#dvResultSearch table").First()
	if table.Length() == 0 {
		return nil, services.Wrap(services.ErrNoResults, componentName, "search", "result table absent", nil)
	}
	rows := table.Find("tbody tr.item_mst")
	if rows.Length() == 0 {
		rows = table.Find("tbody tr")
	}
	if rows.Length() == 0 {
		return nil, services.Wrap(services.ErrNoResults, componentName, "search", "zero result rows", nil)
	}

	row := pickBestRow(rows, identifier)
	href := rowDetailLink(row)
	if href == "" {
		return nil, services.Wrap(services.ErrNotFound, componentName, "search", "result row lacks a detail link", nil)
	}

	c.logger.Debug("following search result",
		logging.String("identifier", identifier),
		logging.String("link", href),
	)
	return c.FetchByLink(ctx, resolveURL(page.URL, href))
}

// FetchByLink loads a detail page and parses the company information
// table. Attributes carry the tvpl_ prefix and the final page URL is
// recorded under tvpl_detail_url.
func (c *Client) FetchByLink(ctx context.Context, rawURL string) (*registry.Record, error) {
	page, err := c.session.FetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	rec := registry.NewRecord()
	rec.Set("tvpl_detail_url", page.URL)

	detail := page.Doc.Find("#dv_ttdn").First()
	if detail.Length() == 0 || registry.ParseTable(detail, "tvpl_", rec) == 0 {
		return nil, services.Wrap(services.ErrNotFound, componentName, "parse", "detail table absent", nil)
	}
	return rec, nil
}

// pickBestRow prefers the row whose identifier cell equals the query
// digit-wise. Without an exact match the first row stands in as the
// documented default.
func pickBestRow(rows *goquery.Selection, identifier string) *goquery.Selection {
	wantDigits := taxid.Digits(identifier)
	var best *goquery.Selection
	if wantDigits != "" {
		rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cell := row.Find("td:nth-child(2) strong").First().Text()
			if taxid.Digits(cell) == wantDigits {
				best = row
				return false
			}
			return true
		})
	}
	if best != nil {
		return best
	}
	return rows.First()
}

// rowDetailLink reads the anchor from the identifier cell, falling back
// to the name cell.
func rowDetailLink(row *goquery.Selection) string {
	for _, sel := range []string{"td:nth-child(2) a", "td:nth-child(3) a"} {
		if href, ok := row.Find(sel).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href)
		}
	}
	return ""
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
