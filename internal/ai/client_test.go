package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req SuggestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hiking", req.Query)
		assert.Equal(t, []string{"bob"}, req.ExistingContacts)

		json.NewEncoder(w).Encode(SuggestResponse{
			SearchResults:     []string{"carol"},
			SuggestedContacts: []string{"dave"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	out, err := client.Suggest(context.Background(), SuggestRequest{
		Query:            "hiking",
		ExistingContacts: []string{"bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, out.SearchResults)
	assert.Equal(t, []string{"dave"}, out.SuggestedContacts)
}

func TestSuggestNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	_, err := client.Suggest(context.Background(), SuggestRequest{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSuggestUnconfigured(t *testing.T) {
	client := NewClient("", 2*time.Second)
	_, err := client.Suggest(context.Background(), SuggestRequest{Query: "x"})
	require.Error(t, err)
}
