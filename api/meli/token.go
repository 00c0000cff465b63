package meli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenData mirrors one row of ml_tokens. A single row is kept per seller
// account and rewritten on every refresh.
type TokenData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       int64     `json:"user_id"`
	ExpiresIn    int       `json:"expires_in"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoadToken reads the stored ML credentials. pgx.ErrNoRows surfaces when the
// account was never authorized.
func LoadToken(ctx context.Context, pool *pgxpool.Pool) (*TokenData, error) {
	var t TokenData
	err := pool.QueryRow(ctx, `
		SELECT access_token, refresh_token, user_id, expires_in, updated_at
		FROM ml_tokens
		ORDER BY updated_at DESC
		LIMIT 1`).Scan(&t.AccessToken, &t.RefreshToken, &t.UserID, &t.ExpiresIn, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveToken upserts the ML credentials for the seller account.
func SaveToken(ctx context.Context, pool *pgxpool.Pool, t *TokenData) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO ml_tokens (user_id, access_token, refresh_token, expires_in, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_in = EXCLUDED.expires_in,
		    updated_at = now()`,
		t.UserID, t.AccessToken, t.RefreshToken, t.ExpiresIn)
	return err
}

// RefreshToken exchanges the stored refresh token for a fresh access token
// and persists the rotated pair. ML rotates the refresh token on every use,
// so a failed save would strand the account; save errors are returned, not
// swallowed.
func (c *Client) RefreshToken(ctx context.Context) (*TokenData, error) {
	stored, err := LoadToken(ctx, c.pool)
	if err != nil {
		return nil, fmt.Errorf("no stored token to refresh: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.appID)
	form.Set("client_secret", c.clientSecret)
	form.Set("refresh_token", stored.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token refresh rejected: %s", resp.Status)
	}

	var refreshed struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		UserID       int64  `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		return nil, fmt.Errorf("bad token refresh response: %w", err)
	}

	updated := &TokenData{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
		UserID:       stored.UserID,
		ExpiresIn:    refreshed.ExpiresIn,
	}
	if refreshed.UserID != 0 {
		updated.UserID = refreshed.UserID
	}
	if err := SaveToken(ctx, c.pool, updated); err != nil {
		return nil, fmt.Errorf("refreshed token could not be saved: %w", err)
	}
	return updated, nil
}
