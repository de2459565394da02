package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hyperjump/mxrag/internal/models"
)

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
}

// searchSerpAPI queries Google through SerpAPI and keeps the organic results.
func (c *Client) searchSerpAPI(ctx context.Context, query string, n int) ([]models.WebResult, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("api_key", c.apiKey)
	q.Set("num", strconv.Itoa(n))
	u.RawQuery = q.Encode()

	var body serpResponse
	err = c.get(ctx, u.String(), func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&body)
	})
	if err != nil {
		return nil, err
	}
	if body.Error != "" && len(body.OrganicResults) == 0 {
		// "no results" is reported as an error string by the API
		return nil, nil
	}

	results := make([]models.WebResult, 0, n)
	for _, r := range body.OrganicResults {
		if len(results) >= n {
			break
		}
		results = append(results, models.WebResult{Title: r.Title, Body: r.Snippet, URL: r.Link})
	}
	return results, nil
}
