package api

import (
	"context"
	"fmt"
	"time"

	"github.com/dkotenko/addrhub/internal/client/models"
)

// Typed calls for the auth and account surfaces. Content verticals go
// through the generic Get/Post/Delete methods instead.

type exchangeRequest struct {
	Code string `json:"code"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
}

// ExchangeCode submits an OAuth authorization code to the token endpoint
// and returns the access token. This call is unauthenticated.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	var resp exchangeResponse
	if err := c.Post(ctx, "/oauth/token", exchangeRequest{Code: code}, &resp); err != nil {
		return "", fmt.Errorf("code exchange failed: %w", err)
	}
	return resp.AccessToken, nil
}

type accountResponse struct {
	Name    string            `json:"name"`
	Email   string            `json:"email"`
	Created int64             `json:"created"`
	Address []addressResponse `json:"addresses"`
}

type addressResponse struct {
	Address      string `json:"address"`
	Registration int64  `json:"registration"`
	Expiration   int64  `json:"expiration"`
}

// AccountInfo fetches the account record with its addresses.
func (c *Client) AccountInfo(ctx context.Context) (models.Account, error) {
	var resp accountResponse
	if err := c.Get(ctx, "/account/info", &resp); err != nil {
		return models.Account{}, fmt.Errorf("account fetch failed: %w", err)
	}

	account := models.Account{
		Name:      resp.Name,
		Email:     resp.Email,
		CreatedAt: time.Unix(resp.Created, 0).UTC(),
		Addresses: make([]models.Address, 0, len(resp.Address)),
	}
	for _, a := range resp.Address {
		account.Addresses = append(account.Addresses, models.Address{
			Handle:    a.Address,
			CreatedAt: time.Unix(a.Registration, 0).UTC(),
			ExpiresAt: time.Unix(a.Expiration, 0).UTC(),
		})
	}
	return account, nil
}
