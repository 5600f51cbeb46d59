// internal/store/postgres/account_store.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"delivery-pipeline/internal/models"
)

// AccountStore is the lib/pq implementation of store.AccountStore.
type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) ActiveAccounts(ctx context.Context, clientID string) ([]models.LinkedAccount, error) {
	query := `SELECT id, client_id, platform, access_token, business_account_id, is_active
		FROM linked_accounts
		WHERE client_id = $1 AND is_active = true
		ORDER BY platform ASC`

	rows, err := s.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("query active accounts for %s: %w", clientID, err)
	}
	defer rows.Close()

	var accounts []models.LinkedAccount
	for rows.Next() {
		var acc models.LinkedAccount
		var businessAccountID sql.NullString
		if err := rows.Scan(&acc.ID, &acc.ClientID, &acc.Platform, &acc.AccessToken,
			&businessAccountID, &acc.IsActive); err != nil {
			return nil, fmt.Errorf("scan linked account: %w", err)
		}
		acc.BusinessAccountID = businessAccountID.String
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate linked accounts: %w", err)
	}
	return accounts, nil
}
