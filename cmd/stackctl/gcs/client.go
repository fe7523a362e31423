// Package gcs uploads diagnostic artifacts to Google Cloud Storage.
// The stack commands use it to ship post-mortem log bundles after a
// failed bring-up so the captured container logs survive teardown.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type Client struct {
	storageClient *storage.Client
	BucketName    string
}

// NewClient opens a storage client for bucketName. An empty saKeyPath
// uses application default credentials; otherwise the service account
// key at that path authenticates the client.
func NewClient(ctx context.Context, bucketName, saKeyPath string) (*Client, error) {
	var opts []option.ClientOption
	if saKeyPath != "" {
		if _, err := os.Stat(saKeyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", saKeyPath)
		}
		opts = append(opts, option.WithCredentialsFile(saKeyPath))
	}

	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &Client{
		storageClient: storageClient,
		BucketName:    bucketName,
	}, nil
}

// UploadFile streams a single local file to the bucket at objectPath.
func (c *Client) UploadFile(ctx context.Context, localPath, objectPath string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open the local file: %s: %w", localPath, err)
	}
	defer localFile.Close()

	obj := c.storageClient.Bucket(c.BucketName).Object(objectPath)
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/octet-stream"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, localFile); err != nil {
		return fmt.Errorf("failed to copy local file %s to GCS object %s: %w", localPath, objectPath, err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", objectPath, err)
	}
	return nil
}

// UploadBundle walks localDir and uploads every regular file under the
// given object prefix. Paths relative to localDir are preserved so a
// dump directory with per-service subfolders keeps its shape.
func (c *Client) UploadBundle(ctx context.Context, localDir, prefix string) error {
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		return c.UploadFile(ctx, path, filepath.ToSlash(filepath.Join(prefix, rel)))
	})
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	return c.storageClient.Close()
}
