package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"remit/internal/auth"
	"remit/internal/services"
	"remit/internal/store"
)

func doRequest(t *testing.T, h *Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, rec.Body.String())
	}
	return body
}

func opsToken(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateToken("test-secret", "ops-1", role, time.Hour)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	return token
}

func TestCreateQuote(t *testing.T) {
	h := newTestHandler(handlerDeps{
		countries: knownCountries(map[string]store.Country{
			"FR": {ID: "c-fr", ISOCode: "FR", CurrencyCode: "EUR"},
			"CI": {ID: "c-ci", ISOCode: "CI", CurrencyCode: "XOF"},
		}),
		pricing: stubPricing{
			quoteFn: func(_ context.Context, senderID, receiverID string, amount decimal.Decimal) (services.PriceQuote, error) {
				if senderID != "c-fr" || receiverID != "c-ci" {
					t.Fatalf("country ids not resolved: %s %s", senderID, receiverID)
				}
				return services.PriceQuote{
					TotalFees:      decimal.RequireFromString("4.5"),
					ReceivedAmount: decimal.RequireFromString("64517.5"),
					TotalPaid:      decimal.RequireFromString("104.5"),
					Source:         "corridor",
				}, nil
			},
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/quotes", `{"sender_country":"fr","receiver_country":"CI","amount":"100"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["total_paid"] != "104.50" || body["received_amount"] != "64517.50" {
		t.Fatalf("unexpected quote body: %v", body)
	}
	if body["rate_source"] != "corridor" {
		t.Fatalf("expected corridor source, got %v", body["rate_source"])
	}
	if body["max_amount"] != nil {
		t.Fatalf("expected null max_amount, got %v", body["max_amount"])
	}
}

func TestCreateQuoteRejectsBadAmount(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodPost, "/quotes", `{"sender_country":"FR","receiver_country":"CI","amount":"-5"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateQuoteUnknownCountry(t *testing.T) {
	h := newTestHandler(handlerDeps{
		countries: knownCountries(map[string]store.Country{
			"FR": {ID: "c-fr", ISOCode: "FR"},
		}),
	})
	rec := doRequest(t, h, http.MethodPost, "/quotes", `{"sender_country":"FR","receiver_country":"ZZ","amount":"100"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateTransferMapsServiceErrors(t *testing.T) {
	countries := knownCountries(map[string]store.Country{
		"FR": {ID: "c-fr", ISOCode: "FR"},
		"CI": {ID: "c-ci", ISOCode: "CI"},
	})
	cases := map[error]string{
		services.ErrAmountBelowMinimum:    "amount_below_minimum",
		services.ErrAmountAboveMaximum:    "amount_above_maximum",
		services.ErrReceiverMethodMissing: "receiver_method_id is required",
	}
	for serviceErr, wantMessage := range cases {
		serviceErr := serviceErr
		h := newTestHandler(handlerDeps{
			countries: countries,
			transfers: stubTransfers{
				createFn: func(context.Context, services.CreateTransferRequest) (store.Transaction, error) {
					return store.Transaction{}, serviceErr
				},
			},
		})
		rec := doRequest(t, h, http.MethodPost, "/transfers",
			`{"sender_name":"Alice","receiver_name":"Bob","receiver_phone":"+225","sender_country":"FR","receiver_country":"CI","amount":"100","sender_method_id":"cpm-fr","receiver_method_id":"cpm-ci"}`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d", serviceErr, rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != wantMessage {
			t.Fatalf("%v: expected %q, got %v", serviceErr, wantMessage, body["error"])
		}
	}
}

func TestCreateTransferHappyPath(t *testing.T) {
	h := newTestHandler(handlerDeps{
		countries: knownCountries(map[string]store.Country{
			"FR": {ID: "c-fr", ISOCode: "FR"},
			"CI": {ID: "c-ci", ISOCode: "CI"},
		}),
		transfers: stubTransfers{
			createFn: func(_ context.Context, req services.CreateTransferRequest) (store.Transaction, error) {
				if req.SenderCountryID != "c-fr" || req.ReceiverCountryID != "c-ci" {
					t.Fatalf("countries not resolved: %+v", req)
				}
				return store.Transaction{
					ID:        "tx-1",
					Reference: "RMT-AAAA-2026",
					Status:    "PENDING",
					Amount:    req.Amount,
				}, nil
			},
		},
	})

	rec := doRequest(t, h, http.MethodPost, "/transfers",
		`{"sender_name":"Alice","receiver_name":"Bob","receiver_phone":"+225","sender_country":"FR","receiver_country":"CI","amount":"100","sender_method_id":"cpm-fr","receiver_method_id":"cpm-ci"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["reference"] != "RMT-AAAA-2026" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestGetTransferNotFound(t *testing.T) {
	h := newTestHandler(handlerDeps{
		transfers: stubTransfers{
			getByReferenceFn: func(context.Context, string) (store.Transaction, error) {
				return store.Transaction{}, services.ErrTransactionNotFound
			},
		},
	})
	rec := doRequest(t, h, http.MethodGet, "/transfers/RMT-MISSING-2026", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	h := newTestHandler(handlerDeps{
		transfers: stubTransfers{
			recordFn: func(context.Context, string, string, string, decimal.Decimal, string) (store.Transaction, error) {
				t.Fatalf("an unauthenticated webhook must never reach the service")
				return store.Transaction{}, nil
			},
		},
	})
	rec := doRequest(t, h, http.MethodPost, "/webhooks/flutterwave",
		`{"gateway_tx_id":"flw-1","status":"successful"}`,
		map[string]string{"X-Webhook-Secret": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookAcknowledgesMismatch(t *testing.T) {
	h := newTestHandler(handlerDeps{
		transfers: stubTransfers{
			recordFn: func(_ context.Context, gatewayName, gatewayTxID, rawStatus string, _ decimal.Decimal, _ string) (store.Transaction, error) {
				if gatewayName != "flutterwave" || gatewayTxID != "flw-1" {
					t.Fatalf("webhook fields not forwarded: %s %s", gatewayName, gatewayTxID)
				}
				return store.Transaction{Reference: "RMT-X-2026", Status: "FAILED"}, services.ErrVerificationMismatch
			},
		},
	})
	rec := doRequest(t, h, http.MethodPost, "/webhooks/flutterwave",
		`{"gateway_tx_id":"flw-1","status":"successful","amount":"104.5","currency":"EUR"}`,
		map[string]string{"X-Webhook-Secret": "hook-secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("mismatch must still be acknowledged with 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["result"] != "verification_mismatch" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestWebhookDuplicateReturnsCurrentStatus(t *testing.T) {
	h := newTestHandler(handlerDeps{
		transfers: stubTransfers{
			recordFn: func(context.Context, string, string, string, decimal.Decimal, string) (store.Transaction, error) {
				return store.Transaction{Reference: "RMT-X-2026", Status: "PAID"}, nil
			},
		},
	})
	rec := doRequest(t, h, http.MethodPost, "/webhooks/flutterwave",
		`{"gateway_tx_id":"flw-1","status":"successful"}`,
		map[string]string{"X-Webhook-Secret": "hook-secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "PAID" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestListPayoutRails(t *testing.T) {
	h := newTestHandler(handlerDeps{
		countries: knownCountries(map[string]store.Country{
			"CI": {ID: "c-ci", ISOCode: "CI", CurrencyCode: "XOF"},
		}),
		rails: stubRails{
			railsFn: func(_ context.Context, countryID string, amount decimal.Decimal) ([]store.RailOption, error) {
				if countryID != "c-ci" || !amount.Equal(decimal.NewFromInt(5000)) {
					t.Fatalf("rails query not forwarded: %s %s", countryID, amount)
				}
				return []store.RailOption{{
					CountryPaymentMethodID: "cpm-mtn",
					SubWalletID:            "sub-mtn",
					MethodName:             "MTN Mobile Money",
					Balance:                decimal.NewFromInt(10000),
					IsAutomatic:            true,
				}}, nil
			},
		},
	})

	rec := doRequest(t, h, http.MethodGet, "/payout-rails?country=ci&amount=5000", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	rails, ok := body["rails"].([]any)
	if !ok || len(rails) != 1 {
		t.Fatalf("expected one rail, got %v", body["rails"])
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodPost, "/admin/transfers/tx-1/approve", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestAdminApproveConflictIncludesTransaction(t *testing.T) {
	h := newTestHandler(handlerDeps{
		transfers: stubTransfers{
			approveFn: func(_ context.Context, id, actor string) (store.Transaction, error) {
				if id != "tx-1" || actor != "ops-1" {
					t.Fatalf("approve args not forwarded: %s %s", id, actor)
				}
				return store.Transaction{ID: "tx-1", Status: "FAILED"}, services.ErrVerificationMismatch
			},
		},
	})
	rec := doRequest(t, h, http.MethodPost, "/admin/transfers/tx-1/approve", "",
		map[string]string{"Authorization": "Bearer " + opsToken(t, "ops")})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["error"] != "verification_mismatch" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["transaction"].(map[string]any); !ok {
		t.Fatalf("expected transaction in conflict body: %v", body)
	}
}

func TestAdminApproveForbiddenForWrongRole(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodPost, "/admin/transfers/tx-1/approve", "",
		map[string]string{"Authorization": "Bearer " + opsToken(t, "viewer")})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer role, got %d", rec.Code)
	}
}

func TestAdminRejectRequiresReason(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodPost, "/admin/transfers/tx-1/reject", `{}`,
		map[string]string{"Authorization": "Bearer " + opsToken(t, "ops")})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without reason, got %d", rec.Code)
	}
}

func TestAdminSetBalance(t *testing.T) {
	h := newTestHandler(handlerDeps{
		ledger: stubLedger{
			setBalanceFn: func(_ context.Context, subWalletID string, balance decimal.Decimal, description string) (store.SubWallet, error) {
				if subWalletID != "sub-1" || !balance.Equal(decimal.NewFromInt(500)) {
					t.Fatalf("set balance args not forwarded: %s %s", subWalletID, balance)
				}
				if description != "manual balance adjustment" {
					t.Fatalf("expected default description, got %q", description)
				}
				return store.SubWallet{ID: subWalletID, Balance: balance}, nil
			},
		},
	})
	rec := doRequest(t, h, http.MethodPost, "/admin/wallets/sub-1/balance", `{"balance":"500"}`,
		map[string]string{"Authorization": "Bearer " + opsToken(t, "admin")})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["balance"] != "500.00" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestAdminSetBalanceRejectsNegative(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodPost, "/admin/wallets/sub-1/balance", `{"balance":"-10"}`,
		map[string]string{"Authorization": "Bearer " + opsToken(t, "admin")})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminBalanceRoutesNeedAdminRole(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodPost, "/admin/wallets/sub-1/balance", `{"balance":"500"}`,
		map[string]string{"Authorization": "Bearer " + opsToken(t, "ops")})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for ops role on balance set, got %d", rec.Code)
	}
}

func TestAdminReconcileReturnsReport(t *testing.T) {
	h := newTestHandler(handlerDeps{
		sweeper: stubSweeper{
			sweepFn: func(context.Context) (services.SweepReport, error) {
				return services.SweepReport{Checked: 3, Paid: 1, Expired: 1}, nil
			},
		},
	})
	rec := doRequest(t, h, http.MethodPost, "/admin/reconcile", "",
		map[string]string{"Authorization": "Bearer " + opsToken(t, "ops")})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["checked"] != float64(3) || body["paid"] != float64(1) {
		t.Fatalf("unexpected report: %v", body)
	}
}

func TestWalletEntriesPaging(t *testing.T) {
	h := newTestHandler(handlerDeps{
		entries: stubEntryStore{
			listFn: func(_ context.Context, subWalletID string, limit, offset int) ([]store.WalletEntry, error) {
				if subWalletID != "sub-1" || limit != 25 || offset != 50 {
					t.Fatalf("paging not applied: %s %d %d", subWalletID, limit, offset)
				}
				return nil, nil
			},
		},
	})
	rec := doRequest(t, h, http.MethodGet, "/admin/wallets/sub-1/entries?limit=25&offset=50", "",
		map[string]string{"Authorization": "Bearer " + opsToken(t, "viewer")})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestWSBalancesRequiresToken(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodGet, "/ws/balances?country=CI", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/ws/balances?country=CI&token=garbage", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestWSBalancesRequiresCountry(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodGet, "/ws/balances?token="+opsToken(t, "ops"), "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without country, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestWebhookRefusedWhenSecretUnset(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookSecret = ""
	h := newTestHandlerWithConfig(cfg, handlerDeps{
		transfers: stubTransfers{
			recordFn: func(context.Context, string, string, string, decimal.Decimal, string) (store.Transaction, error) {
				t.Fatalf("a webhook must never reach the service without a configured secret")
				return store.Transaction{}, nil
			},
		},
	})
	rec := doRequest(t, h, http.MethodPost, "/webhooks/flutterwave",
		`{"gateway_tx_id":"flw-1","status":"successful"}`,
		map[string]string{"X-Webhook-Secret": ""})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestListPaymentMethods(t *testing.T) {
	h := newTestHandler(handlerDeps{
		methods: stubMethodStore{
			listFn: func(context.Context) ([]store.PaymentMethod, error) {
				return []store.PaymentMethod{
					{ID: "pm-card", Name: "Card", Kind: "card_gateway"},
					{ID: "pm-wave", Name: "Wave", Kind: "hybrid_gateway", IsGlobal: true},
				}, nil
			},
		},
	})
	rec := doRequest(t, h, http.MethodGet, "/payment-methods", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var methods []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &methods); err != nil {
		t.Fatalf("response is not a JSON array: %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
	if methods[1]["is_global"] != true {
		t.Fatalf("hybrid method should surface is_global, got %v", methods[1]["is_global"])
	}
}

func TestListCountryMethods(t *testing.T) {
	h := newTestHandler(handlerDeps{
		countries: knownCountries(map[string]store.Country{
			"CI": {ID: "c-ci", ISOCode: "CI", CurrencyCode: "XOF"},
		}),
		methods: stubMethodStore{
			activeByCountryFn: func(_ context.Context, countryID string) ([]store.CountryPaymentMethod, error) {
				if countryID != "c-ci" {
					t.Fatalf("iso code not resolved to country id: %s", countryID)
				}
				return []store.CountryPaymentMethod{
					{ID: "cpm-ci", CountryID: "c-ci", MethodName: "Orange Money", MethodKind: "mobile_money", IsActive: true},
				}, nil
			},
		},
	})
	rec := doRequest(t, h, http.MethodGet, "/countries/ci/methods", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var methods []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &methods); err != nil {
		t.Fatalf("response is not a JSON array: %v", err)
	}
	if len(methods) != 1 || methods[0]["method_name"] != "Orange Money" {
		t.Fatalf("unexpected rails: %v", methods)
	}
}

func TestListCountryMethodsUnknownCountry(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	rec := doRequest(t, h, http.MethodGet, "/countries/zz/methods", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
