package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tizianocitro/blobquickstart/internal/connection"
)

// Storage providers.
const (
	ProviderAzBlob = "azblob"
	ProviderS3     = "s3"
	ProviderMinIO  = "minio"
)

// Run modes of the quickstart.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Storage    StorageConfig
	Transform  TransformConfig
	Quickstart QuickstartConfig
	Secrets    SecretsConfig
	Logging    LoggingConfig
}

type AppConfig struct {
	Name        string
	Environment string
}

// StorageConfig selects the provider and how to authenticate against it.
// For Azure, AccountName/AccountKey are the two configuration strings the
// quickstart builds its credentials from; ConnectionString takes precedence.
// For S3 and MinIO they are the access key id and secret.
type StorageConfig struct {
	Provider         string
	AccountName      string
	AccountKey       string
	ConnectionString string
	UseEnv           bool
	Endpoint         string
	Region           string
}

// TransformConfig enables client side compression and encryption of uploads.
type TransformConfig struct {
	Compression string // none, gzip
	Encryption  string // none, aes256
	EncryptKey  string
}

type QuickstartConfig struct {
	Container     string
	UniqueSuffix  bool
	PublicAccess  bool
	SampleContent string
	SamplePrefix  string
	SampleSuffix  string
	DownloadName  string
	Mode          string
	Pause         bool
	Timeout       int // seconds, 0 disables the deadline
}

// SecretsConfig enables loading the account key from Azure Key Vault.
type SecretsConfig struct {
	KeyVaultName     string
	AccountKeySecret string
	CacheTTL         int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

// TimeoutDuration returns the run timeout as duration
func (q *QuickstartConfig) TimeoutDuration() time.Duration {
	return time.Duration(q.Timeout) * time.Second
}

// CacheTTLDuration returns the secret cache TTL as duration
func (s *SecretsConfig) CacheTTLDuration() time.Duration {
	return time.Duration(s.CacheTTL) * time.Second
}

// Load loads configuration from an optional config file and environment variables.
// path names an explicit config file; when empty, quickstart.{json,yaml,toml} is
// searched in the working directory and ./config.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("quickstart")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Fall back to the variables the Azure SDKs and samples use
	if cfg.Storage.AccountName == "" {
		cfg.Storage.AccountName = v.GetString("AZURE_STORAGE_ACCOUNT_NAME")
	}
	if cfg.Storage.AccountKey == "" {
		cfg.Storage.AccountKey = v.GetString("AZURE_STORAGE_ACCOUNT_KEY")
	}
	if cfg.Storage.ConnectionString == "" {
		cfg.Storage.ConnectionString = v.GetString("AZURE_STORAGE_CONNECTION_STRING")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	cfg.Storage.Provider = strings.ToLower(cfg.Storage.Provider)
	cfg.Quickstart.Mode = strings.ToLower(cfg.Quickstart.Mode)

	return &cfg, nil
}

// Validate checks the settings that do not depend on secrets being resolved.
func (c *Config) Validate() error {
	switch c.Storage.Provider {
	case ProviderAzBlob, ProviderS3, ProviderMinIO:
	default:
		return fmt.Errorf("unsupported storage provider: %q", c.Storage.Provider)
	}

	switch c.Quickstart.Mode {
	case ModeSync, ModeAsync:
	default:
		return fmt.Errorf("unsupported quickstart mode: %q", c.Quickstart.Mode)
	}

	if c.Storage.Provider == ProviderAzBlob && c.Storage.ConnectionString != "" {
		if _, err := connection.ParseAzureConnectionString(c.Storage.ConnectionString); err != nil {
			return fmt.Errorf("invalid storage.connectionstring: %w", err)
		}
	}

	if strings.TrimSpace(c.Quickstart.Container) == "" {
		return fmt.Errorf("quickstart container name is required")
	}
	if c.Quickstart.DownloadName == "" {
		return fmt.Errorf("quickstart download file name is required")
	}

	switch strings.ToLower(c.Transform.Compression) {
	case "", "none", "gzip":
	default:
		return fmt.Errorf("unsupported compression: %q", c.Transform.Compression)
	}
	switch strings.ToLower(c.Transform.Encryption) {
	case "", "none":
	case "aes256":
		if c.Transform.EncryptKey == "" {
			return fmt.Errorf("transform.encryptkey is required for aes256 encryption")
		}
	default:
		return fmt.Errorf("unsupported encryption: %q", c.Transform.Encryption)
	}

	return nil
}

// HasCredentials reports whether explicit credentials are configured.
func (s *StorageConfig) HasCredentials() bool {
	if s.Provider == ProviderAzBlob && s.ConnectionString != "" {
		return true
	}
	return s.AccountName != "" && s.AccountKey != ""
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "blob-quickstart")
	v.SetDefault("app.environment", "development")

	// Storage defaults
	v.SetDefault("storage.provider", ProviderAzBlob)
	v.SetDefault("storage.accountname", "")
	v.SetDefault("storage.accountkey", "")
	v.SetDefault("storage.connectionstring", "")
	v.SetDefault("storage.useenv", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")

	// Transform defaults
	v.SetDefault("transform.compression", "none")
	v.SetDefault("transform.encryption", "none")
	v.SetDefault("transform.encryptkey", "")

	// Quickstart defaults
	v.SetDefault("quickstart.container", "quickstartcontainer")
	v.SetDefault("quickstart.uniquesuffix", false)
	v.SetDefault("quickstart.publicaccess", true)
	v.SetDefault("quickstart.samplecontent", "Hello Azure!")
	v.SetDefault("quickstart.sampleprefix", "sampleFile")
	v.SetDefault("quickstart.samplesuffix", ".txt")
	v.SetDefault("quickstart.downloadname", "downloadedFile.txt")
	v.SetDefault("quickstart.mode", ModeSync)
	v.SetDefault("quickstart.pause", true)
	v.SetDefault("quickstart.timeout", 0)

	// Secrets defaults
	v.SetDefault("secrets.keyvaultname", "")
	v.SetDefault("secrets.accountkeysecret", "storage-account-key")
	v.SetDefault("secrets.cachettl", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
