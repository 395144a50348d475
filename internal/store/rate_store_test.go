package store

import (
	"context"
	"strings"
	"testing"
)

func TestActiveCorridorJoinsLinkedDefault(t *testing.T) {
	db := stubDB{
		getFn: func(_ context.Context, _ any, query string, args ...any) error {
			if !strings.Contains(query, "LEFT JOIN transfer_rates d") {
				t.Fatalf("corridor lookup must join its linked default rate: %s", query)
			}
			if !strings.Contains(query, "linked_base_fee") {
				t.Fatalf("linked columns missing: %s", query)
			}
			if args[0] != "c-fr" || args[1] != "c-ci" {
				t.Fatalf("unexpected args: %v", args)
			}
			return nil
		},
	}
	s := NewRateStore(db)
	if _, err := s.ActiveCorridor(context.Background(), "c-fr", "c-ci"); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
}

func TestActiveCountryRateFiltersActive(t *testing.T) {
	db := stubDB{
		getFn: func(_ context.Context, _ any, query string, args ...any) error {
			if !strings.Contains(query, "r.is_active = TRUE") {
				t.Fatalf("country rate lookup must skip inactive rows: %s", query)
			}
			if args[0] != "c-ci" {
				t.Fatalf("unexpected args: %v", args)
			}
			return nil
		},
	}
	s := NewRateStore(db)
	if _, err := s.ActiveCountryRate(context.Background(), "c-ci"); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
}

func TestDefaultRatePicksTheSingleDefault(t *testing.T) {
	db := stubDB{
		getFn: func(_ context.Context, _ any, query string, _ ...any) error {
			if !strings.Contains(query, "is_default = TRUE") {
				t.Fatalf("default lookup must filter on the default flag: %s", query)
			}
			return nil
		},
	}
	s := NewRateStore(db)
	if _, err := s.DefaultRate(context.Background()); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
}
