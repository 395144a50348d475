package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type WalletStore struct {
	db DB
}

type Wallet struct {
	ID        string          `db:"id" json:"id"`
	CountryID string          `db:"country_id" json:"country_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

type SubWallet struct {
	ID                     string          `db:"id" json:"id"`
	WalletID               string          `db:"wallet_id" json:"wallet_id"`
	CountryPaymentMethodID string          `db:"country_payment_method_id" json:"country_payment_method_id"`
	Balance                decimal.Decimal `db:"balance" json:"balance"`
	ReadOnly               bool            `db:"read_only" json:"read_only"`
	IsActive               bool            `db:"is_active" json:"is_active"`
	CountryISO             string          `db:"country_iso" json:"country_iso"`
	Currency               string          `db:"currency" json:"currency"`
	Gateway                string          `db:"gateway" json:"gateway"`
}

type WalletSummary struct {
	ID         string          `db:"id" json:"id"`
	CountryISO string          `db:"country_iso" json:"country_iso"`
	Currency   string          `db:"currency" json:"currency"`
	Balance    decimal.Decimal `db:"balance" json:"balance"`
	SubWallets int             `db:"sub_wallets" json:"sub_wallets"`
}

// RailOption is one receiver-side rail able to fund a payout.
type RailOption struct {
	CountryPaymentMethodID string              `db:"country_payment_method_id" json:"payment_method_id"`
	SubWalletID            string              `db:"sub_wallet_id" json:"sub_wallet_id"`
	MethodName             string              `db:"method_name" json:"method_name"`
	Balance                decimal.Decimal     `db:"balance" json:"balance"`
	MinAmount              decimal.NullDecimal `db:"min_amount" json:"min_amount"`
	MaxAmount              decimal.NullDecimal `db:"max_amount" json:"max_amount"`
	IsAutomatic            bool                `db:"is_automatic" json:"is_automatic"`
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) WalletByCountry(ctx context.Context, countryID string) (Wallet, error) {
	var row Wallet
	err := s.db.GetContext(ctx, &row, `
		SELECT id, country_id, balance, created_at, updated_at
		FROM wallets
		WHERE country_id = $1
	`, countryID)
	return row, err
}

func (s *WalletStore) CreateWallet(ctx context.Context, tx Execer, id, countryID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, country_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (country_id) DO NOTHING
	`, id, countryID)
	return err
}

const subWalletColumns = `
	s.id, s.wallet_id, s.country_payment_method_id, s.balance, s.read_only, s.is_active,
	c.iso_code AS country_iso, c.currency_code AS currency,
	COALESCE(cpm.gateway, '') AS gateway`

const subWalletJoins = `
	FROM sub_wallets s
	JOIN wallets w ON w.id = s.wallet_id
	JOIN countries c ON c.id = w.country_id
	JOIN country_payment_methods cpm ON cpm.id = s.country_payment_method_id`

func (s *WalletStore) SubWalletByMethod(ctx context.Context, countryPaymentMethodID string) (SubWallet, error) {
	var row SubWallet
	err := s.db.GetContext(ctx, &row, `
		SELECT `+subWalletColumns+subWalletJoins+`
		WHERE s.country_payment_method_id = $1
	`, countryPaymentMethodID)
	return row, err
}

// SubWalletForUpdate locks the sub-wallet row so concurrent settlement and
// admin adjustment cannot interleave into a lost update.
func (s *WalletStore) SubWalletForUpdate(ctx context.Context, tx Getter, id string) (SubWallet, error) {
	var row SubWallet
	err := tx.GetContext(ctx, &row, `
		SELECT `+subWalletColumns+subWalletJoins+`
		WHERE s.id = $1
		FOR UPDATE OF s
	`, id)
	return row, err
}

func (s *WalletStore) CreateSubWallet(ctx context.Context, tx Execer, id, walletID, countryPaymentMethodID string, readOnly bool) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sub_wallets (id, wallet_id, country_payment_method_id, balance, read_only, is_active)
		VALUES ($1, $2, $3, 0, $4, TRUE)
		ON CONFLICT (country_payment_method_id) DO NOTHING
	`, id, walletID, countryPaymentMethodID, readOnly)
	return err
}

func (s *WalletStore) UpdateSubWalletBalance(ctx context.Context, tx Execer, id string, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE sub_wallets
		SET balance = $2, updated_at = NOW()
		WHERE id = $1
	`, id, balance.String())
	return err
}

// RecomputeWalletTotal rewrites the cached wallet aggregate from its active
// sub-wallets. Runs inside the same transaction as the mutation that made
// it stale.
func (s *WalletStore) RecomputeWalletTotal(ctx context.Context, tx Execer, walletID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = (
			SELECT COALESCE(SUM(balance), 0)
			FROM sub_wallets
			WHERE wallet_id = $1 AND is_active = TRUE
		), updated_at = NOW()
		WHERE id = $1
	`, walletID)
	return err
}

// ActiveRailsByCountry is the raw projection behind the payout rail
// selector; fundability filtering happens in the service.
func (s *WalletStore) ActiveRailsByCountry(ctx context.Context, countryID string) ([]RailOption, error) {
	var rows []RailOption
	err := s.db.SelectContext(ctx, &rows, `
		SELECT cpm.id AS country_payment_method_id,
		       s.id AS sub_wallet_id,
		       pm.name AS method_name,
		       s.balance,
		       cpm.min_amount,
		       cpm.max_amount,
		       cpm.is_automatic
		FROM sub_wallets s
		JOIN wallets w ON w.id = s.wallet_id
		JOIN country_payment_methods cpm ON cpm.id = s.country_payment_method_id
		JOIN payment_methods pm ON pm.id = cpm.payment_method_id
		WHERE w.country_id = $1
		  AND s.is_active = TRUE
		  AND cpm.is_active = TRUE
	`, countryID)
	return rows, err
}

func (s *WalletStore) ListSummaries(ctx context.Context) ([]WalletSummary, error) {
	var rows []WalletSummary
	err := s.db.SelectContext(ctx, &rows, `
		SELECT w.id,
		       c.iso_code AS country_iso,
		       c.currency_code AS currency,
		       w.balance,
		       COUNT(s.id) AS sub_wallets
		FROM wallets w
		JOIN countries c ON c.id = w.country_id
		LEFT JOIN sub_wallets s ON s.wallet_id = w.id AND s.is_active = TRUE
		GROUP BY w.id, c.iso_code, c.currency_code, w.balance
		ORDER BY c.iso_code
	`)
	return rows, err
}

func (s *WalletStore) ListReadOnly(ctx context.Context) ([]SubWallet, error) {
	var rows []SubWallet
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+subWalletColumns+subWalletJoins+`
		WHERE s.read_only = TRUE AND s.is_active = TRUE
	`)
	return rows, err
}
