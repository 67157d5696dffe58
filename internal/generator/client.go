package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nearyou-pipeline/internal/domain"
	"github.com/nearyou-pipeline/internal/domain/repository"
	apperrors "github.com/nearyou-pipeline/internal/pkg/errors"
)

// GenerateRequest is the wire format of the /generate endpoint.
type GenerateRequest struct {
	User struct {
		Age        uint8  `json:"age" validate:"required"`
		Profession string `json:"profession"`
		Interests  string `json:"interests"`
	} `json:"user" validate:"required"`
	POI struct {
		Name        string `json:"name" validate:"required"`
		Category    string `json:"category" validate:"required"`
		Description string `json:"description"`
	} `json:"poi" validate:"required"`
}

// GenerateResponse is the body of a successful /generate call.
type GenerateResponse struct {
	Message string `json:"message"`
	Cached  bool   `json:"cached"`
}

// HTTPClient calls the message generator service over HTTP. It
// implements repository.GeneratorClient for the pipeline.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string) repository.GeneratorClient {
	return &HTTPClient{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) Generate(ctx context.Context, profile *domain.UserProfile, shop *domain.Shop, description string) (string, error) {
	var req GenerateRequest
	req.User.Age = profile.Age
	req.User.Profession = profile.Profession
	req.User.Interests = profile.Interests
	req.POI.Name = shop.ShopName
	req.POI.Category = shop.Category
	req.POI.Description = description

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generate call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.ErrGenerationFailed.WithReason(
			fmt.Sprintf("generator returned status %d", resp.StatusCode))
	}

	var payload GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}

	return payload.Message, nil
}
