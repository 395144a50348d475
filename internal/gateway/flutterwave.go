package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Flutterwave struct {
	baseURL string
	secret  string
	client  *http.Client
}

func NewFlutterwave(baseURL, secret string, timeout time.Duration) *Flutterwave {
	return &Flutterwave{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		client:  &http.Client{Timeout: timeout},
	}
}

type flwEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		Status           string          `json:"status"`
		Amount           decimal.Decimal `json:"amount"`
		Currency         string          `json:"currency"`
		Reference        string          `json:"reference"`
		AvailableBalance decimal.Decimal `json:"available_balance"`
	} `json:"data"`
}

func (f *Flutterwave) Verify(ctx context.Context, gatewayTxID string) (Verification, error) {
	var body flwEnvelope
	url := fmt.Sprintf("%s/v3/transactions/%s/verify", f.baseURL, gatewayTxID)
	if err := f.call(ctx, http.MethodGet, url, nil, &body); err != nil {
		return Verification{}, err
	}
	return Verification{
		Status:   mapFlutterwaveStatus(body.Data.Status),
		Amount:   body.Data.Amount,
		Currency: body.Data.Currency,
	}, nil
}

func (f *Flutterwave) Payout(ctx context.Context, railConfig string, req PayoutRequest) (PayoutResult, error) {
	payload := map[string]any{
		"reference":      req.Reference,
		"beneficiary":    req.ReceiverName,
		"account_number": req.ReceiverPhone,
		"amount":         req.Amount,
		"currency":       req.Currency,
	}
	// rail config may carry bank codes or wallet network hints
	if railConfig != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(railConfig), &extra); err == nil {
			for k, v := range extra {
				payload[k] = v
			}
		}
	}
	var body flwEnvelope
	if err := f.call(ctx, http.MethodPost, f.baseURL+"/v3/transfers", payload, &body); err != nil {
		return PayoutResult{}, err
	}
	return PayoutResult{
		Success:           body.Status == "success",
		ProviderReference: body.Data.Reference,
		Message:           body.Data.Status,
	}, nil
}

func (f *Flutterwave) Balance(ctx context.Context, currency string) (decimal.NullDecimal, error) {
	var body flwEnvelope
	url := fmt.Sprintf("%s/v3/balances/%s", f.baseURL, currency)
	if err := f.call(ctx, http.MethodGet, url, nil, &body); err != nil {
		return decimal.NullDecimal{}, err
	}
	if body.Status != "success" {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NullDecimal{Decimal: body.Data.AvailableBalance, Valid: true}, nil
}

func (f *Flutterwave) call(ctx context.Context, method, url string, payload, out any) error {
	var reader *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+f.secret)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("flutterwave returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapFlutterwaveStatus(raw string) Status {
	switch strings.ToLower(raw) {
	case "successful", "success", "completed":
		return StatusSuccessful
	case "failed", "error":
		return StatusFailed
	case "cancelled", "canceled", "aborted":
		return StatusCancelled
	default:
		return StatusPending
	}
}
