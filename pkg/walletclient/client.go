/**
 * @description
 * This package provides a client for the P2P wallet provider's payouts
 * API. It sends funds to a wallet handle and returns the provider's
 * transfer id.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package walletclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the wallet provider API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new wallet API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TransferRequest is the payload for sending funds to a wallet handle.
type TransferRequest struct {
	Handle   string `json:"handle"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// TransferResponse is the provider's response to a transfer.
type TransferResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse represents an error from the wallet provider API.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("wallet api error: %s - %s", e.Code, e.Message)
	}
	return "unknown wallet api error"
}

// SendTransfer sends funds to the given wallet handle.
func (c *Client) SendTransfer(ctx context.Context, handle string, amount int64, currency string) (*TransferResponse, error) {
	payload, err := json.Marshal(TransferRequest{
		Handle:   handle,
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/transfers", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call wallet api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("wallet api returned status %d", resp.StatusCode)
	}

	var transfer TransferResponse
	if err := json.Unmarshal(body, &transfer); err != nil {
		return nil, fmt.Errorf("failed to decode wallet response: %w", err)
	}
	return &transfer, nil
}
