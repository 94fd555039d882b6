// Package client is a typed HTTP client for the paperplant API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/iceplantengineering/paperplant/internal/lineage"
	"github.com/iceplantengineering/paperplant/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const resultSuccess = 2000

// envelope mirrors the server's Result wrapper
type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// APIError non-success response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paperplant api error: %s (status: %d)", e.Message, e.StatusCode)
}

// Client paperplant API client
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func New(baseURL string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Journey GET /api/traceability/journey/{lotID}
func (c *Client) Journey(ctx context.Context, lotID string) (*lineage.Chain, error) {
	var chain lineage.Chain
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("lot_id", lotID).
		Get("/api/traceability/journey/{lot_id}")
	if err := c.decode(resp, err, &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// ExportJourney raw XLSX bytes of the lot journey
func (c *Client) ExportJourney(ctx context.Context, lotID string) ([]byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("lot_id", lotID).
		SetHeader("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet").
		Get("/api/traceability/journey/{lot_id}/export")
	if err != nil {
		return nil, fmt.Errorf("failed to call paperplant api: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, c.decode(resp, nil, nil)
	}
	return resp.Body(), nil
}

// Alerts GET /api/alerts
func (c *Client) Alerts(ctx context.Context, status string, limit int) ([]models.MachineStatusLog, error) {
	var out struct {
		Alerts []models.MachineStatusLog `json:"alerts"`
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("status", status).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get("/api/alerts")
	if err := c.decode(resp, err, &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

// ResolveAlert POST /api/alerts/{logID}/resolve
func (c *Client) ResolveAlert(ctx context.Context, logID int64) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("log_id", strconv.FormatInt(logID, 10)).
		Post("/api/alerts/{log_id}/resolve")
	return c.decode(resp, err, nil)
}

func (c *Client) decode(resp *resty.Response, callErr error, out any) error {
	if callErr != nil {
		c.logger.Error("Paperplant API call failed", zap.Error(callErr))
		return fmt.Errorf("failed to call paperplant api: %w", callErr)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode(), Message: "undecodable response"}
	}
	if resp.StatusCode() != http.StatusOK || env.Code != resultSuccess {
		c.logger.Debug("Paperplant API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", env.Message),
		)
		return &APIError{StatusCode: resp.StatusCode(), Message: env.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}
