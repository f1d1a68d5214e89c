package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// UploadFile stores the content of the local file at path as fileName in storeBox.
func UploadFile(ctx context.Context, storage FileStorage, storeBox, fileName, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return storage.PutObject(ctx, storeBox, fileName, f)
}

// DownloadFile writes fileName from storeBox to the local file at path, creating or
// truncating it. It returns the number of bytes written. On a failed copy the partial
// file is removed.
func DownloadFile(ctx context.Context, storage FileStorage, storeBox, fileName, path string) (int64, error) {
	body, err := storage.GetObject(ctx, storeBox, fileName)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}
