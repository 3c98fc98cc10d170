// Package namelookup recovers official business names from public
// lookup APIs when the input sheet carries an identifier but no name.
package namelookup

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"tracuu/internal/httpx"
	"tracuu/internal/services"
	"tracuu/internal/textutil"
)

const vitaxComponent = "vitax"

// Vitax looks names up through the invoice partner API.
type Vitax struct {
	endpoint string
	client   *httpx.Client
}

var _ Provider = (*Vitax)(nil)

// NewVitax builds a provider querying endpoint.
func NewVitax(endpoint string, logger *slog.Logger, opts ...httpx.Option) *Vitax {
	return &Vitax{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		client:   httpx.New(vitaxComponent, logger, opts...),
	}
}

// Name implements Provider.
func (v *Vitax) Name() string { return vitaxComponent }

type vitaxResponse struct {
	Result struct {
		Name string `json:"name"`
	} `json:"result"`
}

// LookupName implements Provider.
func (v *Vitax) LookupName(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", services.Wrap(services.ErrNoResults, vitaxComponent, "lookup", "empty identifier", nil)
	}

	var payload vitaxResponse
	if err := v.client.GetJSON(ctx, v.endpoint+"?mst="+url.QueryEscape(identifier), &payload); err != nil {
		return "", err
	}

	name := textutil.CleanText(payload.Result.Name)
	if name == "" {
		return "", services.Wrap(services.ErrNoResults, vitaxComponent, "lookup", "no name for identifier "+identifier, nil)
	}
	return name, nil
}
