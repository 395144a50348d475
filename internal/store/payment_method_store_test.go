package store

import (
	"context"
	"strings"
	"testing"
)

func TestPaymentMethodListSelectsGlobalFlag(t *testing.T) {
	db := stubDB{
		selectFn: func(_ context.Context, _ any, query string, _ ...any) error {
			if !strings.Contains(query, "is_global") {
				t.Fatalf("catalog query must select the global flag: %s", query)
			}
			if !strings.Contains(query, "FROM payment_methods") {
				t.Fatalf("unexpected table: %s", query)
			}
			return nil
		},
	}
	s := NewPaymentMethodStore(db)
	if _, err := s.List(context.Background()); err != nil {
		t.Fatalf("list failed: %v", err)
	}
}

func TestCountryMethodJoinsCatalog(t *testing.T) {
	db := stubDB{
		getFn: func(_ context.Context, _ any, query string, args ...any) error {
			if !strings.Contains(query, "JOIN payment_methods pm") {
				t.Fatalf("rail lookup must join the method catalog: %s", query)
			}
			if !strings.Contains(query, "fee_override") {
				t.Fatalf("override column missing: %s", query)
			}
			if args[0] != "cpm-ci" {
				t.Fatalf("unexpected args: %v", args)
			}
			return nil
		},
	}
	s := NewPaymentMethodStore(db)
	if _, err := s.CountryMethod(context.Background(), "cpm-ci"); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
}

func TestActiveByCountryFiltersInactive(t *testing.T) {
	db := stubDB{
		selectFn: func(_ context.Context, _ any, query string, args ...any) error {
			if !strings.Contains(query, "cpm.is_active = TRUE") {
				t.Fatalf("country listing must skip inactive rails: %s", query)
			}
			if args[0] != "c-ci" {
				t.Fatalf("unexpected args: %v", args)
			}
			return nil
		},
	}
	s := NewPaymentMethodStore(db)
	if _, err := s.ActiveByCountry(context.Background(), "c-ci"); err != nil {
		t.Fatalf("listing failed: %v", err)
	}
}
