// Package masothue drives the primary business registry through the
// shared session.
package masothue

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"tracuu/internal/browse"
	"tracuu/internal/logging"
	"tracuu/internal/registry"
	"tracuu/internal/services"
)

const (
	componentName = "masothue"
	searchPath    = "/Search/"
)

// Client resolves identifiers against the registry's detail pages and
// search form.
type Client struct {
	baseURL string
	session *browse.Session
	logger  *slog.Logger
}

var _ registry.Client = (*Client)(nil)

// New builds a client rooted at baseURL.
func New(baseURL string, session *browse.Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		session: session,
		logger:  logging.NewComponentLogger(logger, componentName),
	}
}

// Name implements registry.Client.
func (c *Client) Name() string { return componentName }

// FetchByLink loads a detail page and parses its two keyed tables. The
// first table's attributes carry the mst_t1_ prefix, the second table's
// mst_t2_, and the final page URL is recorded under masothue_url.
func (c *Client) FetchByLink(ctx context.Context, rawURL string) (*registry.Record, error) {
	page, err := c.session.FetchPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return parseDetail(page)
}

// SearchByIdentifier submits the registry's search form. A single match
// redirects straight to its detail page; anything else parses as no
// results.
func (c *Client) SearchByIdentifier(ctx context.Context, identifier string) (*registry.Record, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, services.Wrap(services.ErrNoResults, componentName, "search", "empty identifier", nil)
	}

	query := url.Values{
		"q":            {identifier},
		"type":         {"auto"},
		"token":        {""},
		"force-search": {"1"},
	}
	page, err := c.session.FetchPage(ctx, c.baseURL+searchPath+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	rec, err := parseDetail(page)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, services.Wrap(services.ErrNoResults, componentName, "search",
				"no detail for identifier "+identifier, nil)
		}
		return nil, err
	}
	c.logger.Debug("search landed on detail page",
		logging.String("identifier", identifier),
		logging.String("url", page.URL),
	)
	return rec, nil
}

func parseDetail(page *browse.Page) (*registry.Record, error) {
	rec := registry.NewRecord()
	rec.Set("masothue_url", page.URL)

	section := page.Doc.Find("#main section").First()
	tables := section.Find("table")
	parsed := 0
	if tables.Length() > 0 {
		parsed += registry.ParseTable(tables.Eq(0), "mst_t1_", rec)
	}
	if tables.Length() > 1 {
		parsed += registry.ParseTable(tables.Eq(1), "mst_t2_", rec)
	}
	if parsed == 0 {
		return nil, services.Wrap(services.ErrNotFound, componentName, "parse", "detail tables absent", nil)
	}
	return rec, nil
}
