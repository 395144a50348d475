package store

import (
	"context"
	"time"
)

type CountryStore struct {
	db DB
}

type Country struct {
	ID           string    `db:"id" json:"id"`
	ISOCode      string    `db:"iso_code" json:"iso_code"`
	CurrencyCode string    `db:"currency_code" json:"currency_code"`
	Name         string    `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func NewCountryStore(db DB) *CountryStore {
	return &CountryStore{db: db}
}

func (s *CountryStore) GetByID(ctx context.Context, countryID string) (Country, error) {
	var row Country
	err := s.db.GetContext(ctx, &row, `
		SELECT id, iso_code, currency_code, name, created_at
		FROM countries
		WHERE id = $1
	`, countryID)
	return row, err
}

func (s *CountryStore) GetByISO(ctx context.Context, isoCode string) (Country, error) {
	var row Country
	err := s.db.GetContext(ctx, &row, `
		SELECT id, iso_code, currency_code, name, created_at
		FROM countries
		WHERE iso_code = $1
	`, isoCode)
	return row, err
}

func (s *CountryStore) List(ctx context.Context) ([]Country, error) {
	var rows []Country
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, iso_code, currency_code, name, created_at
		FROM countries
		ORDER BY iso_code
	`)
	return rows, err
}
