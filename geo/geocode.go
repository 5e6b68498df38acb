package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"bottlebank/models"
	"bottlebank/utils"
)

// ErrAddressNotFound is returned when a lookup produces no results.
var ErrAddressNotFound = errors.New("address not found")

// Geocoder resolves addresses to coordinates and back. The core only
// consumes coordinates; the provider behind this interface is external.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.GeoPoint, error)
	ReverseGeocode(ctx context.Context, point models.GeoPoint) (string, error)
}

// NominatimGeocoder talks to a Nominatim-compatible HTTP endpoint.
type NominatimGeocoder struct {
	endpoint string
	client   *http.Client
}

func NewNominatimGeocoder(endpoint string) *NominatimGeocoder {
	return &NominatimGeocoder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type searchResult struct {
	Latitude    float64 `json:"lat,string"`
	Longitude   float64 `json:"lon,string"`
	DisplayName string  `json:"display_name"`
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (models.GeoPoint, error) {
	q := url.Values{"q": []string{address}, "format": []string{"json"}}
	reqURL := fmt.Sprintf("%s/search?%s", g.endpoint, q.Encode())

	var results []searchResult
	if err := g.getJSON(ctx, reqURL, &results); err != nil {
		return models.GeoPoint{}, err
	}
	if len(results) == 0 {
		return models.GeoPoint{}, ErrAddressNotFound
	}
	return models.GeoPoint{Latitude: results[0].Latitude, Longitude: results[0].Longitude}, nil
}

func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, point models.GeoPoint) (string, error) {
	q := url.Values{
		"lat":    []string{fmt.Sprintf("%f", point.Latitude)},
		"lon":    []string{fmt.Sprintf("%f", point.Longitude)},
		"format": []string{"json"},
	}
	reqURL := fmt.Sprintf("%s/reverse?%s", g.endpoint, q.Encode())

	var result searchResult
	if err := g.getJSON(ctx, reqURL, &result); err != nil {
		return "", err
	}
	if result.DisplayName == "" {
		return "", ErrAddressNotFound
	}
	return result.DisplayName, nil
}

func (g *NominatimGeocoder) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		utils.GetLogger().Warn("geocoder request failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		utils.GetLogger().Warn("geocoder returned non-OK status", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
