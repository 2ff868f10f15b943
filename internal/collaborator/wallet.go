package collaborator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type playerResponse struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Credits  int64  `json:"credits"`
}

type creditsResponse struct {
	Message    string `json:"message"`
	OldCredits int64  `json:"old_credits"`
	NewCredits int64  `json:"new_credits"`
	Change     int64  `json:"change"`
}

// WalletClient moves credits through the player-data API. The API clamps
// balances at zero, so a debit that comes back clamped means the player could
// not cover the full amount; the partial deduction is restored and the debit
// reported as failed.
type WalletClient struct {
	http *resty.Client
}

func NewWalletClient(baseURL string) *WalletClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second)
	return &WalletClient{http: client}
}

func (c *WalletClient) GetBalance(ctx context.Context, playerID string) (int64, error) {
	var out playerResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v1/players/" + playerID)
	if err != nil {
		return 0, fmt.Errorf("balance lookup: %w", err)
	}
	if resp.StatusCode() == 404 {
		return 0, ErrPlayerNotFound
	}
	if resp.IsError() {
		return 0, fmt.Errorf("balance lookup: status %d", resp.StatusCode())
	}
	return out.Credits, nil
}

func (c *WalletClient) applyDelta(ctx context.Context, playerID string, delta int64) (*creditsResponse, error) {
	var out creditsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParam("credits_change", strconv.FormatInt(delta, 10)).
		Post("/api/v1/players/" + playerID + "/credits")
	if err != nil {
		return nil, fmt.Errorf("credits update: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, ErrPlayerNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("credits update: status %d", resp.StatusCode())
	}
	return &out, nil
}

// Debit removes amount from the player's balance. Fails closed when the
// balance could not cover the amount.
func (c *WalletClient) Debit(ctx context.Context, playerID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	out, err := c.applyDelta(ctx, playerID, -amount)
	if err != nil {
		return err
	}
	if out.NewCredits != out.OldCredits-amount {
		// Balance was clamped at zero; restore what was taken.
		deducted := out.OldCredits - out.NewCredits
		if deducted > 0 {
			if _, restoreErr := c.applyDelta(ctx, playerID, deducted); restoreErr != nil {
				log.Printf("[WALLET] failed to restore %d credits to %s after clamped debit: %v",
					deducted, playerID, restoreErr)
			}
		}
		return ErrInsufficientFunds
	}
	return nil
}

// Credit adds amount to the player's balance.
func (c *WalletClient) Credit(ctx context.Context, playerID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	_, err := c.applyDelta(ctx, playerID, amount)
	return err
}
