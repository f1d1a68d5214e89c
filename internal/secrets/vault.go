package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// SecretGetter fetches a secret value by name.
type SecretGetter interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// VaultClient wraps Azure Key Vault client for secret retrieval
type VaultClient struct {
	client   *azsecrets.Client
	logger   *zap.Logger
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// NewVaultClient creates a new Azure Key Vault client.
// Uses DefaultAzureCredential, which supports environment variables, managed identity
// and Azure CLI credentials.
func NewVaultClient(vaultName string, cacheTTL time.Duration, logger *zap.Logger) (*VaultClient, error) {
	if vaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", vaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	logger.Debug("Azure Key Vault client initialized", zap.String("vault_url", vaultURL))

	return &VaultClient{
		client:   client,
		logger:   logger,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cachedSecret),
	}, nil
}

// GetSecret retrieves the latest version of a secret, serving it from cache while fresh.
func (v *VaultClient) GetSecret(ctx context.Context, secretName string) (string, error) {
	v.mu.Lock()
	cached, ok := v.cache[secretName]
	v.mu.Unlock()
	if ok && time.Now().Before(cached.expiresAt) {
		v.logger.Debug("Secret retrieved from cache", zap.String("secret_name", secretName))
		return cached.value, nil
	}

	resp, err := v.client.GetSecret(ctx, secretName, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret '%s': %w", secretName, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret '%s' has no value", secretName)
	}

	v.mu.Lock()
	v.cache[secretName] = cachedSecret{value: *resp.Value, expiresAt: time.Now().Add(v.cacheTTL)}
	v.mu.Unlock()

	v.logger.Debug("Secret retrieved from Key Vault", zap.String("secret_name", secretName))
	return *resp.Value, nil
}
