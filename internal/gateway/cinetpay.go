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

type CinetPay struct {
	baseURL string
	apiKey  string
	siteID  string
	client  *http.Client
}

func NewCinetPay(baseURL, apiKey, siteID string, timeout time.Duration) *CinetPay {
	return &CinetPay{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		siteID:  siteID,
		client:  &http.Client{Timeout: timeout},
	}
}

type cinetpayEnvelope struct {
	Code string `json:"code"`
	Data struct {
		Status     string          `json:"status"`
		Amount     decimal.Decimal `json:"amount"`
		Currency   string          `json:"currency"`
		OperatorID string          `json:"operator_id"`
	} `json:"data"`
	Message string `json:"message"`
}

func (c *CinetPay) Verify(ctx context.Context, gatewayTxID string) (Verification, error) {
	payload := map[string]any{
		"apikey":         c.apiKey,
		"site_id":        c.siteID,
		"transaction_id": gatewayTxID,
	}
	var body cinetpayEnvelope
	if err := c.call(ctx, c.baseURL+"/v2/payment/check", payload, &body); err != nil {
		return Verification{}, err
	}
	return Verification{
		Status:   mapCinetPayStatus(body.Data.Status),
		Amount:   body.Data.Amount,
		Currency: body.Data.Currency,
	}, nil
}

func (c *CinetPay) Payout(ctx context.Context, railConfig string, req PayoutRequest) (PayoutResult, error) {
	payload := map[string]any{
		"apikey":           c.apiKey,
		"site_id":          c.siteID,
		"client_reference": req.Reference,
		"beneficiary":      req.ReceiverName,
		"phone":            req.ReceiverPhone,
		"amount":           req.Amount,
		"currency":         req.Currency,
	}
	if railConfig != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(railConfig), &extra); err == nil {
			for k, v := range extra {
				payload[k] = v
			}
		}
	}
	var body cinetpayEnvelope
	if err := c.call(ctx, c.baseURL+"/v1/transfer/money", payload, &body); err != nil {
		return PayoutResult{}, err
	}
	return PayoutResult{
		Success:           body.Code == "00" || strings.EqualFold(body.Code, "OPERATION_SUCCES"),
		ProviderReference: body.Data.OperatorID,
		Message:           body.Message,
	}, nil
}

// CinetPay has no per-currency balance endpoint worth trusting; read-only
// sub-wallets on this gateway keep their last synced value.
func (c *CinetPay) Balance(ctx context.Context, currency string) (decimal.NullDecimal, error) {
	return decimal.NullDecimal{}, nil
}

func (c *CinetPay) call(ctx context.Context, url string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cinetpay returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapCinetPayStatus(raw string) Status {
	switch strings.ToUpper(raw) {
	case "ACCEPTED", "SUCCES", "SUCCESS":
		return StatusSuccessful
	case "REFUSED", "FAILED":
		return StatusFailed
	case "CANCELLED", "CANCELED":
		return StatusCancelled
	default:
		return StatusPending
	}
}
