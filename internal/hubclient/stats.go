package hubclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ArnoKim89/arno-game-server/internal/dns"
)

// Stats is the hub's GET /stats body.
type Stats struct {
	Rooms         int `json:"rooms"`
	Clients       int `json:"clients"`
	HostlessRooms int `json:"hostlessRooms"`
	RegistryRooms int `json:"registryRooms"`
}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		DialContext:         dns.DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	},
}

// FetchStats reads the hub counters from baseURL (http://host:port).
func FetchStats(ctx context.Context, baseURL string) (Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/stats", nil)
	if err != nil {
		return Stats{}, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return Stats{}, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Stats{}, fmt.Errorf("fetch stats: unexpected status %s", resp.Status)
	}

	var st Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Stats{}, fmt.Errorf("decode stats: %w", err)
	}
	return st, nil
}
