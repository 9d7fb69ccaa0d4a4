package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gestione-tecnici/backend/internal/models"
)

// NominatimGeocoder resolves addresses through the OpenStreetMap Nominatim
// search API. The full address is tried first; when it yields nothing the
// query is retried with just the city. Requests are spaced MinInterval apart
// (Nominatim usage policy: one request per second).
type NominatimGeocoder struct {
	BaseURL     string
	UserAgent   string
	CountryCode string
	MinInterval time.Duration
	Client      *http.Client

	mu        sync.Mutex
	lastReqAt time.Time
	cache     map[string]models.Coordinate
}

type nominatimItem struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string, city string) (models.Coordinate, error) {
	query := BuildQuery(address, city)
	if query == "" {
		return models.Coordinate{}, ErrNotFound
	}

	coord, err := g.search(ctx, query, g.CountryCode)
	if err == nil {
		return coord, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Coordinate{}, err
	}

	// Locality fallback: retry with the city alone.
	if city == "" {
		return models.Coordinate{}, ErrNotFound
	}
	return g.search(ctx, city, g.CountryCode)
}

func (g *NominatimGeocoder) search(ctx context.Context, query string, countryCode string) (models.Coordinate, error) {
	if g.Client == nil {
		g.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if g.BaseURL == "" {
		g.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if g.UserAgent == "" {
		g.UserAgent = "GestioneAppuntamentiTecnici/1.0"
	}
	if g.MinInterval <= 0 {
		g.MinInterval = time.Second
	}

	g.mu.Lock()
	if g.cache == nil {
		g.cache = map[string]models.Coordinate{}
	}
	if cached, ok := g.cache[query]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	sleepFor := time.Until(g.lastReqAt.Add(g.MinInterval))
	if sleepFor > 0 {
		g.mu.Unlock()
		time.Sleep(sleepFor)
		g.mu.Lock()
	}
	g.lastReqAt = time.Now()
	g.mu.Unlock()

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.BaseURL, url.QueryEscape(query))
	if countryCode != "" {
		endpoint += "&countrycodes=" + url.QueryEscape(countryCode)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Coordinate{}, err
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return models.Coordinate{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Coordinate{}, fmt.Errorf("nominatim http error: %s", resp.Status)
	}

	var items []nominatimItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return models.Coordinate{}, err
	}
	coord, err := parseNominatimItems(items)
	if err != nil {
		return models.Coordinate{}, err
	}

	g.mu.Lock()
	g.cache[query] = coord
	g.mu.Unlock()

	return coord, nil
}

func parseNominatimItems(items []nominatimItem) (models.Coordinate, error) {
	if len(items) == 0 {
		return models.Coordinate{}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(items[0].Lat, 64)
	if err != nil {
		return models.Coordinate{}, err
	}
	lon, err := strconv.ParseFloat(items[0].Lon, 64)
	if err != nil {
		return models.Coordinate{}, err
	}
	return models.Coordinate{Lat: lat, Lon: lon}, nil
}
