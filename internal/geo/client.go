// internal/geo/client.go
// Nominatim geocoding lookups (forward by city name, reverse by coordinates)

package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Location is the resolved geography of a profile's locality.
type Location struct {
	Coordinates Point
	City        string
	State       string
	Country     string
}

// Locality is either a city name or a coordinate pair supplied by the client.
type Locality struct {
	Name  string
	Point *Point
}

// Client queries the Nominatim HTTP API.
type Client struct {
	baseURL   string
	userAgent string
	lang      string
	http      *http.Client
}

// NewClient creates a geocoding client.
func NewClient(baseURL, userAgent, lang string) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		lang:      lang,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimResult struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		City           string `json:"city"`
		Town           string `json:"town"`
		Administrative string `json:"administrative"`
		CityDistrict   string `json:"city_district"`
		County         string `json:"county"`
		State          string `json:"state"`
		Country        string `json:"country"`
	} `json:"address"`
}

// Resolve looks up the locality: forward search for a city name, reverse
// lookup for a coordinate pair.
func (c *Client) Resolve(ctx context.Context, locality Locality) (*Location, error) {
	var route string
	params := url.Values{}
	if locality.Point != nil {
		route = "/reverse"
		params.Set("lat", strconv.FormatFloat(locality.Point.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(locality.Point.Lon, 'f', -1, 64))
	} else {
		route = "/search"
		params.Set("city", locality.Name)
	}
	params.Set("addressdetails", "1")
	params.Set("accept-language", c.lang)
	params.Set("format", "jsonv2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+route+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding request returned status %d", resp.StatusCode)
	}

	result, err := decodeFirstResult(resp, route)
	if err != nil {
		return nil, err
	}

	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in geocoding response: %w", err)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in geocoding response: %w", err)
	}

	city := cityFromAddress(result)
	state := result.Address.State
	if state == "" {
		state = city
	}

	return &Location{
		Coordinates: Point{Lat: lat, Lon: lon},
		City:        city,
		State:       state,
		Country:     result.Address.Country,
	}, nil
}

// decodeFirstResult handles the two Nominatim response shapes: /search
// returns an array, /reverse a single object.
func decodeFirstResult(resp *http.Response, route string) (*nominatimResult, error) {
	if route == "/reverse" {
		var result nominatimResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode geocoding response: %w", err)
		}
		return &result, nil
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("geocoding returned no results")
	}
	return &results[0], nil
}

// cityFromAddress picks the most specific populated-place field available.
func cityFromAddress(r *nominatimResult) string {
	addr := r.Address
	for _, candidate := range []string{
		addr.City, addr.Town, addr.Administrative, addr.CityDistrict, addr.County, addr.State,
	} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
