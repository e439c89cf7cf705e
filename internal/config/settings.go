package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dsadash/dsadash/internal/localdb"
)

// Where a URL setting came from.
const (
	SourceConfig  = "config"
	SourceSaved   = "saved"
	SourceDefault = "default"
)

// SettingStore holds the URLs saved from the dashboard or `dsa config
// save`. Implemented by *localdb.DB.
type SettingStore interface {
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string, ttl time.Duration) error
	DeleteSetting(ctx context.Context, key string) error
}

// Resolve fills SheetURL and WebhookURL from saved settings when the config
// file and environment left them empty.
func Resolve(ctx context.Context, cfg *Config, store SettingStore) error {
	if store == nil {
		return nil
	}

	if cfg.SheetURL == "" {
		v, ok, err := store.Setting(ctx, localdb.SettingSheetURL)
		if err != nil {
			return fmt.Errorf("failed to read saved sheet URL: %w", err)
		}
		if ok {
			cfg.SheetURL = v
			cfg.SheetURLSource = SourceSaved
		}
	}

	if cfg.WebhookURL == "" {
		v, ok, err := store.Setting(ctx, localdb.SettingWebhookURL)
		if err != nil {
			return fmt.Errorf("failed to read saved webhook URL: %w", err)
		}
		if ok {
			cfg.WebhookURL = v
			cfg.WebhookURLSource = SourceSaved
		}
	}
	return nil
}

// Save validates and stores the URLs for a year. The sheet URL is required;
// an empty webhook URL leaves the saved one untouched.
func Save(ctx context.Context, store SettingStore, sheetURL, webhookURL string) error {
	sheetURL = strings.TrimSpace(sheetURL)
	webhookURL = strings.TrimSpace(webhookURL)

	if err := ValidateSheetURL(sheetURL); err != nil {
		return err
	}
	if err := ValidateWebhookURL(webhookURL); err != nil {
		return err
	}

	if err := store.SetSetting(ctx, localdb.SettingSheetURL, sheetURL, localdb.SettingTTL); err != nil {
		return err
	}
	if webhookURL != "" {
		if err := store.SetSetting(ctx, localdb.SettingWebhookURL, webhookURL, localdb.SettingTTL); err != nil {
			return err
		}
	}
	return nil
}

// Forget removes both saved URLs.
func Forget(ctx context.Context, store SettingStore) error {
	for _, key := range []string{localdb.SettingSheetURL, localdb.SettingWebhookURL} {
		if err := store.DeleteSetting(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
