// Package geo resolves IP addresses to a coarse country/region/city location.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/pkg/logger"
)

const DefaultURL = "http://ip-api.com/json"

var ErrLookupFailed = errors.New("geolocation lookup failed")

// HTTPResolver queries an ip-api compatible endpoint
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	redactIPs  bool
}

func NewHTTPResolver(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPResolver {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPResolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// WithIPRedaction logs only the network part of looked up addresses
func (r *HTTPResolver) WithIPRedaction(redact bool) *HTTPResolver {
	r.redactIPs = redact
	return r
}

type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
}

// Locate returns the location of ip. Missing fields are reported as Unknown.
func (r *HTTPResolver) Locate(ctx context.Context, ip string) (models.Location, error) {
	loc, err := r.lookup(ctx, ip)
	if err != nil {
		r.logger.DebugContext(ctx, "geolocation lookup failed",
			logger.RedactedIP("ip", ip, r.redactIPs),
			slog.Any("error", err))
		return models.UnknownLocation(), err
	}
	return loc, nil
}

func (r *HTTPResolver) lookup(ctx context.Context, ip string) (models.Location, error) {
	endpoint := r.baseURL + "/" + url.PathEscape(ip) + "?fields=status,message,country,regionName,city"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Location{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if body.Status != "" && body.Status != "success" {
		return models.Location{}, fmt.Errorf("%w: %s", ErrLookupFailed, body.Message)
	}

	return withUnknowns(models.Location{
		Country: body.Country,
		Region:  body.RegionName,
		City:    body.City,
	}), nil
}

func withUnknowns(loc models.Location) models.Location {
	unknown := models.UnknownLocation()
	if loc.Country == "" {
		loc.Country = unknown.Country
	}
	if loc.Region == "" {
		loc.Region = unknown.Region
	}
	if loc.City == "" {
		loc.City = unknown.City
	}
	return loc
}
