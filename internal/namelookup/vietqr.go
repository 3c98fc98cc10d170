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

const vietqrComponent = "vietqr"

// VietQR looks names up through the public business endpoint.
type VietQR struct {
	endpoint string
	client   *httpx.Client
}

var _ Provider = (*VietQR)(nil)

// NewVietQR builds a provider querying endpoint.
func NewVietQR(endpoint string, logger *slog.Logger, opts ...httpx.Option) *VietQR {
	return &VietQR{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		client:   httpx.New(vietqrComponent, logger, opts...),
	}
}

// Name implements Provider.
func (v *VietQR) Name() string { return vietqrComponent }

type vietqrResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		Name string `json:"name"`
	} `json:"data"`
}

// LookupName implements Provider. The endpoint reports success with
// code 00; every other code reads as no result for the identifier.
func (v *VietQR) LookupName(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", services.Wrap(services.ErrNoResults, vietqrComponent, "lookup", "empty identifier", nil)
	}

	var payload vietqrResponse
	if err := v.client.GetJSON(ctx, v.endpoint+"/"+url.PathEscape(identifier), &payload); err != nil {
		return "", err
	}

	if payload.Code != "00" {
		msg := "lookup rejected with code " + payload.Code
		if desc := textutil.CleanText(payload.Desc); desc != "" {
			msg += ": " + desc
		}
		return "", services.Wrap(services.ErrNoResults, vietqrComponent, "lookup", msg, nil)
	}

	name := textutil.CleanText(payload.Data.Name)
	if name == "" {
		return "", services.Wrap(services.ErrNoResults, vietqrComponent, "lookup", "no name for identifier "+identifier, nil)
	}
	return name, nil
}
