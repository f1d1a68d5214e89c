package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	blobquickstart "github.com/tizianocitro/blobquickstart"
	"github.com/tizianocitro/blobquickstart/internal/config"
	"github.com/tizianocitro/blobquickstart/internal/quickstart"
	"github.com/tizianocitro/blobquickstart/internal/secrets"
	"github.com/tizianocitro/blobquickstart/pkg/filestorage"
	"go.uber.org/zap"
)

var banners = map[string]string{
	config.ProviderAzBlob: "Azure Blob storage quick start sample",
	config.ProviderS3:     "AWS S3 quick start sample",
	config.ProviderMinIO:  "MinIO quick start sample",
}

// resolveSecrets loads the account key from Key Vault when the config asks for it.
func resolveSecrets(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if !secrets.NeedsAccountKey(cfg) {
		return nil
	}
	vault, err := secrets.NewVaultClient(cfg.Secrets.KeyVaultName, cfg.Secrets.CacheTTLDuration(), logger)
	if err != nil {
		return err
	}
	return secrets.ResolveAccountKey(ctx, cfg, vault, logger)
}

// openStorage connects to the configured provider.
func openStorage(cfg *config.Config, logger *zap.Logger) (filestorage.FileStorage, error) {
	opts, err := connectionOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	var storage filestorage.FileStorage
	switch cfg.Storage.Provider {
	case config.ProviderAzBlob:
		storage, err = blobquickstart.NewAzBlobConnection(cfg.Storage.Endpoint, opts)
	case config.ProviderS3:
		storage, err = blobquickstart.NewS3Connection(cfg.Storage.Endpoint, opts, cfg.Storage.Region)
	case config.ProviderMinIO:
		storage, err = blobquickstart.NewMinIOConnection(cfg.Storage.Endpoint, opts, nil)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %q", cfg.Storage.Provider)
	}
	if err != nil {
		return nil, err
	}
	return storage, nil
}

func connectionOptions(cfg *config.Config, logger *zap.Logger) (blobquickstart.ConnectionOptions, error) {
	opts := blobquickstart.ConnectionOptions{
		SaveCompress: blobquickstart.NO_COMPRESSION,
		SaveEncrypt:  blobquickstart.NO_ENCRYPTION,
		EncryptKey:   cfg.Transform.EncryptKey,
		Logger:       logger,
	}

	switch strings.ToLower(cfg.Transform.Compression) {
	case "", "none":
	case "gzip":
		opts.SaveCompress = blobquickstart.GZIP_COMPRESSION
	default:
		return opts, fmt.Errorf("unsupported compression: %q", cfg.Transform.Compression)
	}
	switch strings.ToLower(cfg.Transform.Encryption) {
	case "", "none":
	case "aes256":
		opts.SaveEncrypt = blobquickstart.AES256_ENCRYPTION
	default:
		return opts, fmt.Errorf("unsupported encryption: %q", cfg.Transform.Encryption)
	}

	s := cfg.Storage
	switch {
	case s.UseEnv:
		opts.ConnectionMethod = blobquickstart.ConnectWithEnvCredentials()
	case s.Provider == config.ProviderAzBlob && s.ConnectionString != "":
		opts.ConnectionMethod = blobquickstart.ConnectWithConnectionString(s.ConnectionString)
	case s.HasCredentials():
		opts.ConnectionMethod = blobquickstart.ConnectWithCredentials(s.AccountName, s.AccountKey)
	default:
		return opts, fmt.Errorf("no credentials configured for %s: set storage.accountname and storage.accountkey, storage.connectionstring, storage.useenv or secrets.keyvaultname", s.Provider)
	}
	return opts, nil
}

// containerName returns the configured container, with a random suffix when unique
// names are requested so concurrent runs do not collide.
func containerName(cfg *config.QuickstartConfig) string {
	if !cfg.UniqueSuffix {
		return cfg.Container
	}
	return cfg.Container + "-" + uuid.NewString()
}

func quickstartOptions(cfg *config.Config, container string) quickstart.Options {
	q := cfg.Quickstart
	opts := quickstart.DefaultOptions()
	opts.Banner = banners[cfg.Storage.Provider]
	opts.Container = container
	opts.PublicAccess = q.PublicAccess
	opts.SampleContent = q.SampleContent
	opts.SamplePrefix = q.SamplePrefix
	opts.SampleSuffix = q.SampleSuffix
	opts.DownloadName = q.DownloadName
	opts.Pause = q.Pause
	return opts
}
