package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearyou-pipeline/internal/domain"
)

func TestHTTPClient_GenerateWireFormat(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Vieni da Bar Roma!","cached":true}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	profile := &domain.UserProfile{Age: 30, Profession: "Ingegnere", Interests: "caffè"}
	shop := &domain.Shop{ShopName: "Bar Roma", Category: "bar", Distance: 120}

	msg, err := client.Generate(context.Background(), profile, shop, "Negozio a 120m di distanza")
	assert.NoError(t, err)
	assert.Equal(t, "Vieni da Bar Roma!", msg)

	assert.Contains(t, got, "user")
	assert.Contains(t, got, "poi")
	assert.NotContains(t, got, "shop")
	assert.NotContains(t, got, "description")

	var poi struct {
		Name        string `json:"name"`
		Category    string `json:"category"`
		Description string `json:"description"`
	}
	require.NoError(t, json.Unmarshal(got["poi"], &poi))
	assert.Equal(t, "Bar Roma", poi.Name)
	assert.Equal(t, "bar", poi.Category)
	assert.Equal(t, "Negozio a 120m di distanza", poi.Description)
}

func TestHTTPClient_GenerateRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	_, err := client.Generate(context.Background(), &domain.UserProfile{Age: 30}, &domain.Shop{ShopName: "Bar Roma", Category: "bar"}, "")
	assert.Error(t, err)
}

func TestHTTPClient_Timeout(t *testing.T) {
	client := NewHTTPClient("http://localhost:1").(*HTTPClient)
	assert.Equal(t, 10*time.Second, client.client.Timeout)
}
