package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SuggestRequest is the payload sent to the contact-suggestion endpoint.
// existingContacts lets the service rank around contacts the caller already
// has.
type SuggestRequest struct {
	Query            string   `json:"query"`
	ExistingContacts []string `json:"existingContacts"`
}

// SuggestResponse carries plain usernames. The names are untrusted free text
// and must be resolved through the profile reverse index before being shown
// as real users.
type SuggestResponse struct {
	SearchResults     []string `json:"searchResults"`
	SuggestedContacts []string `json:"suggestedContacts"`
}

// Suggester is the contact-suggestion collaborator.
type Suggester interface {
	Suggest(ctx context.Context, req SuggestRequest) (SuggestResponse, error)
}

// Client calls the suggestion service over HTTP JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client. timeout bounds the whole call; the endpoint
// is external and may stall.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Suggest posts the query and returns the ranked username lists.
func (c *Client) Suggest(ctx context.Context, req SuggestRequest) (SuggestResponse, error) {
	if c.baseURL == "" {
		return SuggestResponse{}, errors.New("suggestion service not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return SuggestResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return SuggestResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return SuggestResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SuggestResponse{}, fmt.Errorf("suggestion service returned %d", resp.StatusCode)
	}

	var out SuggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SuggestResponse{}, err
	}
	return out, nil
}
