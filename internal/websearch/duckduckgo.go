package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/hyperjump/mxrag/internal/models"
	"github.com/hyperjump/mxrag/pkg/utils"
)

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading        string     `json:"Heading"`
	AbstractText   string     `json:"AbstractText"`
	AbstractSource string     `json:"AbstractSource"`
	AbstractURL    string     `json:"AbstractURL"`
	RelatedTopics  []ddgTopic `json:"RelatedTopics"`
}

// searchDuckDuckGo uses the key-less Instant Answer API: the abstract first, then related
// topics, flattening topic groups.
func (c *Client) searchDuckDuckGo(ctx context.Context, query string, n int) ([]models.WebResult, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	u.RawQuery = q.Encode()

	var body ddgResponse
	err = c.get(ctx, u.String(), func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&body)
	})
	if err != nil {
		return nil, err
	}

	results := make([]models.WebResult, 0, n)
	if body.AbstractText != "" {
		title := body.Heading
		if title == "" {
			title = body.AbstractSource
		}
		results = append(results, models.WebResult{Title: title, Body: body.AbstractText, URL: body.AbstractURL})
	}
	var walk func(topics []ddgTopic)
	walk = func(topics []ddgTopic) {
		for _, t := range topics {
			if len(results) >= n {
				return
			}
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			if t.Text == "" || t.FirstURL == "" {
				continue
			}
			results = append(results, models.WebResult{Title: utils.Truncate(t.Text, maxTitleLen), Body: t.Text, URL: t.FirstURL})
		}
	}
	walk(body.RelatedTopics)
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}
