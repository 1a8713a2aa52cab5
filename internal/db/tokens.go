package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rsclarke/canaryd/internal/models"
	"github.com/rsclarke/canaryd/internal/token"
)

// ErrEmptyOwner is returned when a token is created without an owner label.
var ErrEmptyOwner = errors.New("owner must not be empty")

// DefaultTokenTTL is applied when the caller does not request an expiry.
const DefaultTokenTTL = 7 * 24 * time.Hour

// MaxTokensPerPage caps list responses.
const MaxTokensPerPage = 200

// CreateToken generates a new canary token for owner expiring ttl from now.
// A non-positive ttl falls back to DefaultTokenTTL.
func CreateToken(d *sql.DB, owner string, ttl time.Duration, now time.Time) (*models.Token, error) {
	if owner == "" {
		return nil, ErrEmptyOwner
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	value, err := token.Generate()
	if err != nil {
		return nil, err
	}

	createdAt := now.Unix()
	expiresAt := now.Add(ttl).Unix()

	result, err := d.Exec(
		"INSERT INTO tokens (token, owner, created_at, expires_at, active) VALUES (?, ?, ?, ?, 1)",
		value, owner, createdAt, expiresAt,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Token{
		ID:        id,
		Token:     value,
		Owner:     owner,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		Active:    true,
	}, nil
}

// GetTokenByValue returns the token with the given value, or nil when absent.
func GetTokenByValue(d *sql.DB, value string) (*models.Token, error) {
	row := d.QueryRow(
		"SELECT id, token, owner, created_at, expires_at, active FROM tokens WHERE token = ?",
		value,
	)
	return scanToken(row)
}

// DeactivateToken marks the token inactive and returns its post-update state.
// Deactivating an already-inactive token succeeds; an unknown value returns
// nil without error.
func DeactivateToken(d *sql.DB, value string) (*models.Token, error) {
	if _, err := d.Exec("UPDATE tokens SET active = 0 WHERE token = ?", value); err != nil {
		return nil, err
	}
	return GetTokenByValue(d, value)
}

// TokenWithCount pairs a token with the number of events recorded against it.
type TokenWithCount struct {
	models.Token
	EventCount int
}

// ListTokens returns tokens ordered by creation time descending. page is
// 1-based; perPage is clamped to MaxTokensPerPage.
func ListTokens(d *sql.DB, page, perPage int) ([]TokenWithCount, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > MaxTokensPerPage {
		perPage = MaxTokensPerPage
	}

	rows, err := d.Query(`
		SELECT t.id, t.token, t.owner, t.created_at, t.expires_at, t.active, COUNT(e.id) AS event_count
		FROM tokens t
		LEFT JOIN events e ON e.token_id = t.id
		GROUP BY t.id
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT ? OFFSET ?
	`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []TokenWithCount
	for rows.Next() {
		var t TokenWithCount
		var active int
		if err := rows.Scan(&t.ID, &t.Token.Token, &t.Owner, &t.CreatedAt, &t.ExpiresAt, &active, &t.EventCount); err != nil {
			return nil, err
		}
		t.Active = active != 0
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func scanToken(row *sql.Row) (*models.Token, error) {
	var t models.Token
	var active int
	err := row.Scan(&t.ID, &t.Token, &t.Owner, &t.CreatedAt, &t.ExpiresAt, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Active = active != 0
	return &t, nil
}
