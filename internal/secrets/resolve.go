package secrets

import (
	"context"
	"fmt"

	"github.com/tizianocitro/blobquickstart/internal/config"
	"go.uber.org/zap"
)

// NeedsAccountKey reports whether the storage account key must come from Key Vault:
// a vault is configured and no key or connection string was given directly.
func NeedsAccountKey(cfg *config.Config) bool {
	if cfg.Secrets.KeyVaultName == "" || cfg.Storage.UseEnv {
		return false
	}
	if cfg.Storage.AccountKey != "" {
		return false
	}
	return cfg.Storage.Provider != config.ProviderAzBlob || cfg.Storage.ConnectionString == ""
}

// ResolveAccountKey fills cfg.Storage.AccountKey from getter when NeedsAccountKey.
func ResolveAccountKey(ctx context.Context, cfg *config.Config, getter SecretGetter, logger *zap.Logger) error {
	if !NeedsAccountKey(cfg) {
		return nil
	}

	key, err := getter.GetSecret(ctx, cfg.Secrets.AccountKeySecret)
	if err != nil {
		return fmt.Errorf("resolve storage account key: %w", err)
	}
	if key == "" {
		return fmt.Errorf("resolve storage account key: secret '%s' is empty", cfg.Secrets.AccountKeySecret)
	}

	cfg.Storage.AccountKey = key
	logger.Info("Storage account key loaded from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
		zap.String("secret_name", cfg.Secrets.AccountKeySecret),
	)
	return nil
}
