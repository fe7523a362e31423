package snapshot

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ErrBucketMissing is returned when the snapshot bucket does not exist
// in cloud storage.
var ErrBucketMissing = errors.New("snapshot bucket not found")

// BucketVerifier checks that the snapshot target bucket exists before
// the repository is registered, turning a misconfigured bucket into a
// deployment-time failure instead of a first-backup failure.
type BucketVerifier struct {
	client *storage.Client
}

// NewBucketVerifier creates a verifier. An empty credentialsFile uses
// application default credentials.
func NewBucketVerifier(ctx context.Context, credentialsFile string) (*BucketVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &BucketVerifier{client: client}, nil
}

// Verify confirms the bucket exists and is visible to the configured
// credentials.
func (v *BucketVerifier) Verify(ctx context.Context, bucket string) error {
	_, err := v.client.Bucket(bucket).Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %s", ErrBucketMissing, bucket)
	}
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", bucket, err)
	}
	return nil
}

// Close releases the storage client.
func (v *BucketVerifier) Close() error {
	return v.client.Close()
}
