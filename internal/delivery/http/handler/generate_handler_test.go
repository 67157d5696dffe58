package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/cache"
	"github.com/nearyou-pipeline/internal/generator"
)

type staticLLM struct {
	message string
}

func (l *staticLLM) Complete(_ context.Context, _ string) (string, error) {
	return l.message, nil
}

func newTestApp() *fiber.App {
	service := generator.NewService(
		cache.NewMemoryCache(time.Minute),
		&staticLLM{message: "Vieni da Bar Roma!"},
		time.Minute,
		zap.NewNop(),
	)
	h := NewGenerateHandler(service, zap.NewNop())

	app := fiber.New()
	app.Post("/generate", h.Generate)
	app.Get("/cache/stats", h.Stats)
	return app
}

func TestGenerateHandler_Success(t *testing.T) {
	app := newTestApp()

	body := []byte(`{
		"user": {"age": 30, "profession": "Ingegnere", "interests": "caffè"},
		"poi": {"name": "Bar Roma", "category": "bar", "description": "Negozio a 120m di distanza"}
	}`)

	req := httptest.NewRequest("POST", "/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The response body is the bare message record, no envelope.
	var payload generator.GenerateResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "Vieni da Bar Roma!", payload.Message)
	assert.False(t, payload.Cached)

	var raw map[string]json.RawMessage
	body2 := []byte(`{
		"user": {"age": 30, "profession": "Ingegnere", "interests": "caffè"},
		"poi": {"name": "Bar Roma", "category": "bar", "description": "Negozio a 120m di distanza"}
	}`)
	req2 := httptest.NewRequest("POST", "/generate", bytes.NewReader(body2))
	req2.Header.Set("Content-Type", "application/json")
	resp2, err := app.Test(req2)
	assert.NoError(t, err)
	assert.NoError(t, json.NewDecoder(resp2.Body).Decode(&raw))
	assert.Contains(t, raw, "message")
	assert.Contains(t, raw, "cached")
	assert.NotContains(t, raw, "data")
	assert.NotContains(t, raw, "status")
}

func TestGenerateHandler_RejectsMissingPOI(t *testing.T) {
	app := newTestApp()

	body := []byte(`{"user": {"age": 30}}`)
	req := httptest.NewRequest("POST", "/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGenerateHandler_Stats(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/cache/stats", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Contains(t, envelope.Data, "cache_hits")
	assert.Contains(t, envelope.Data, "cache_info")
}
