package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"prezence/api/internal/roster"
)

const (
	KeyUnits      = "svj_attendance_v3"
	KeyWebhookURL = "svj_webhook_url"
)

// Repository stores the roll and the webhook URL under fixed keys.
type Repository struct {
	kv KV
}

func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

// LoadUnits returns the saved roll. A missing, unreadable or empty roll
// yields the default seed so the operator always starts with something to
// click on; only backend failures are reported.
func (r *Repository) LoadUnits(ctx context.Context) ([]roster.Unit, error) {
	raw, ok, err := r.kv.Get(ctx, KeyUnits)
	if err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	if !ok {
		return roster.DefaultUnits(), nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "undefined" {
		return roster.DefaultUnits(), nil
	}
	var units []roster.Unit
	if err := json.Unmarshal([]byte(raw), &units); err != nil || len(units) == 0 {
		return roster.DefaultUnits(), nil
	}
	return roster.Prepare(units), nil
}

// SaveUnits replaces the saved roll.
func (r *Repository) SaveUnits(ctx context.Context, units []roster.Unit) error {
	if units == nil {
		units = []roster.Unit{}
	}
	data, err := json.Marshal(units)
	if err != nil {
		return fmt.Errorf("marshal units: %w", err)
	}
	if err := r.kv.Set(ctx, KeyUnits, string(data)); err != nil {
		return fmt.Errorf("save units: %w", err)
	}
	return nil
}

// WebhookURL returns the stored endpoint, or fallback when none is stored.
func (r *Repository) WebhookURL(ctx context.Context, fallback string) (string, error) {
	raw, ok, err := r.kv.Get(ctx, KeyWebhookURL)
	if err != nil {
		return "", fmt.Errorf("load webhook url: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return raw, nil
}

func (r *Repository) SetWebhookURL(ctx context.Context, url string) error {
	if err := r.kv.Set(ctx, KeyWebhookURL, strings.TrimSpace(url)); err != nil {
		return fmt.Errorf("save webhook url: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.kv.Ping(ctx)
}
