package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RESTClient talks to the processor's HTTP API. Calls carrying an idempotency
// key are retried once on transport failure; everything else is single-shot.
type RESTClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewRESTClient(baseURL, apiKey string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *RESTClient) Name() string { return "processor" }

type apiIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type apiTransfer struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type apiAccountLink struct {
	URL string `json:"url"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *RESTClient) CreateIntent(ctx context.Context, req CreateIntentRequest) (CreateIntentResponse, error) {
	body := map[string]any{
		"amount":         req.AmountCents,
		"currency":       req.Currency,
		"customer":       req.CustomerRef,
		"capture_method": "manual",
		"metadata":       req.Metadata,
	}

	var out apiIntent
	if err := c.post(ctx, "/v1/payment_intents", req.IdempotencyKey, body, &out); err != nil {
		return CreateIntentResponse{}, err
	}
	return CreateIntentResponse{IntentRef: out.ID, ClientSecret: out.ClientSecret, Status: out.Status}, nil
}

func (c *RESTClient) CaptureIntent(ctx context.Context, req CaptureRequest) (CaptureResponse, error) {
	var out apiIntent
	path := fmt.Sprintf("/v1/payment_intents/%s/capture", req.IntentRef)
	if err := c.post(ctx, path, req.IdempotencyKey, map[string]any{}, &out); err != nil {
		return CaptureResponse{}, err
	}
	return CaptureResponse{Status: out.Status}, nil
}

func (c *RESTClient) CancelIntent(ctx context.Context, req CancelIntentRequest) error {
	path := fmt.Sprintf("/v1/payment_intents/%s/cancel", req.IntentRef)
	return c.post(ctx, path, "", map[string]any{}, &apiIntent{})
}

func (c *RESTClient) CreateTransfer(ctx context.Context, req CreateTransferRequest) (CreateTransferResponse, error) {
	body := map[string]any{
		"amount":      req.AmountCents,
		"currency":    req.Currency,
		"destination": req.DestinationRef,
		"metadata":    req.Metadata,
	}

	var out apiTransfer
	if err := c.post(ctx, "/v1/transfers", req.IdempotencyKey, body, &out); err != nil {
		return CreateTransferResponse{}, err
	}
	return CreateTransferResponse{TransferRef: out.ID, Status: out.Status}, nil
}

func (c *RESTClient) CreateAccountLink(ctx context.Context, req AccountLinkRequest) (AccountLinkResponse, error) {
	body := map[string]any{
		"account":     req.AccountRef,
		"return_url":  req.ReturnURL,
		"refresh_url": req.RefreshURL,
	}

	var out apiAccountLink
	if err := c.post(ctx, "/v1/account_links", "", body, &out); err != nil {
		return AccountLinkResponse{}, err
	}
	return AccountLinkResponse{URL: out.URL}, nil
}

func (c *RESTClient) post(ctx context.Context, path, idemKey string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	// One bounded retry, and only when the call is idempotency-keyed.
	attempts := 1
	if idemKey != "" {
		attempts = 2
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
		lastErr = c.doPost(ctx, path, idemKey, payload, out)
		if lastErr == nil {
			return nil
		}
		// API-level rejections are final; only transport errors retry.
		if _, ok := lastErr.(*APIError); ok {
			return lastErr
		}
	}
	return lastErr
}

func (c *RESTClient) doPost(ctx context.Context, path, idemKey string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}

	if res.StatusCode >= 400 {
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		return &APIError{Status: res.StatusCode, Code: ae.Code, Message: ae.Message}
	}

	return json.Unmarshal(raw, out)
}

// APIError is a definitive rejection from the processor (4xx/5xx with a
// decoded body), as opposed to a transport failure.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor api error: status=%d code=%s %s", e.Status, e.Code, e.Message)
}
