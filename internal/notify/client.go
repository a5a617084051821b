// Package notify предоставляет клиент для отправки уведомлений витрине магазина.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client инкапсулирует HTTP-отправку уведомлений движка витрине.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// AchievementUnlockedEvent — полезная нагрузка уведомления о новом достижении.
type AchievementUnlockedEvent struct {
	AccountID     int64  `json:"account_id"`
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
	Reward        int64  `json:"reward"`
}

// PayoutResolvedEvent — полезная нагрузка уведомления о решении по выплате.
type PayoutResolvedEvent struct {
	PayoutID     string `json:"payout_id"`
	InfluencerID int64  `json:"influencer_id"`
	Status       string `json:"status"`
}

// NewClient создаёт клиент уведомлений для указанного адреса витрины.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// AchievementUnlocked отправляет уведомление о разблокированном достижении.
func (c *Client) AchievementUnlocked(ctx context.Context, event AchievementUnlockedEvent) error {
	return c.post(ctx, "/api/notifications/achievements", event)
}

// PayoutResolved отправляет уведомление о смене статуса заявки на выплату.
func (c *Client) PayoutResolved(ctx context.Context, event PayoutResolvedEvent) error {
	return c.post(ctx, "/api/notifications/payouts", event)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("notify client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
