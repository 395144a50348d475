package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFlutterwaveVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/transactions/flw-123/verify" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Fatalf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"status":"successful","amount":104.5,"currency":"EUR"}}`))
	}))
	defer server.Close()

	client := NewFlutterwave(server.URL, "sk-test", time.Second)
	verification, err := client.Verify(context.Background(), "flw-123")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if verification.Status != StatusSuccessful {
		t.Fatalf("expected successful, got %s", verification.Status)
	}
	want, _ := decimal.NewFromString("104.5")
	if !verification.Amount.Equal(want) || verification.Currency != "EUR" {
		t.Fatalf("unexpected verification %+v", verification)
	}
}

func TestFlutterwaveVerifyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewFlutterwave(server.URL, "sk-test", time.Second)
	if _, err := client.Verify(context.Background(), "flw-123"); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestFlutterwavePayoutMergesRailConfig(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/transfers" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"status":"success","data":{"reference":"flw-p-9","status":"NEW"}}`))
	}))
	defer server.Close()

	client := NewFlutterwave(server.URL, "sk-test", time.Second)
	result, err := client.Payout(context.Background(), `{"account_bank":"044"}`, PayoutRequest{
		Reference:     "RMT-1",
		ReceiverName:  "Bob",
		ReceiverPhone: "+2250102030405",
		Amount:        decimal.NewFromInt(64500),
		Currency:      "XOF",
	})
	if err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	if !result.Success || result.ProviderReference != "flw-p-9" {
		t.Fatalf("unexpected result %+v", result)
	}
	if got["account_bank"] != "044" {
		t.Fatalf("rail config not merged into payload: %v", got)
	}
	if got["reference"] != "RMT-1" || got["currency"] != "XOF" {
		t.Fatalf("payout payload mismatch: %v", got)
	}
}

func TestFlutterwaveBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/balances/XOF" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"available_balance":240000}}`))
	}))
	defer server.Close()

	client := NewFlutterwave(server.URL, "sk-test", time.Second)
	balance, err := client.Balance(context.Background(), "XOF")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if !balance.Valid || !balance.Decimal.Equal(decimal.NewFromInt(240000)) {
		t.Fatalf("unexpected balance %+v", balance)
	}
}

func TestFlutterwaveBalanceNotAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","data":{}}`))
	}))
	defer server.Close()

	client := NewFlutterwave(server.URL, "sk-test", time.Second)
	balance, err := client.Balance(context.Background(), "XOF")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Valid {
		t.Fatalf("expected invalid balance, got %+v", balance)
	}
}

func TestMapFlutterwaveStatus(t *testing.T) {
	cases := map[string]Status{
		"successful": StatusSuccessful,
		"Completed":  StatusSuccessful,
		"failed":     StatusFailed,
		"error":      StatusFailed,
		"cancelled":  StatusCancelled,
		"canceled":   StatusCancelled,
		"pending":    StatusPending,
		"whatever":   StatusPending,
	}
	for raw, want := range cases {
		if got := mapFlutterwaveStatus(raw); got != want {
			t.Fatalf("mapFlutterwaveStatus(%q): expected %s, got %s", raw, want, got)
		}
	}
}
