package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ridloal/agri-traceability/internal/platform/logger"
)

var ErrProducerNotFound = errors.New("producer profile not found")

// ProducerDirectory resolves an owner id to the name shown to consumers.
type ProducerDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// UserServiceClient reads profiles from user_service.
type UserServiceClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewUserServiceClient(baseURL string) *UserServiceClient {
	return &UserServiceClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

type userProfileResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

func (c *UserServiceClient) DisplayName(ctx context.Context, userID string) (string, error) {
	reqURL := fmt.Sprintf("%s/api/v1/users/%s", c.BaseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request to user service: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.Error("UserServiceClient.DisplayName: HTTPClient.Do failed", err, nil)
		return "", fmt.Errorf("failed to call user service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrProducerNotFound
	default:
		return "", fmt.Errorf("user service returned status: %d", resp.StatusCode)
	}

	var profile userProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("failed to decode response from user service: %w", err)
	}
	return profile.DisplayName, nil
}
