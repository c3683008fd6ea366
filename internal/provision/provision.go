// Package provision implements the one-shot storage initialization task: it
// waits for the object storage service to become reachable, ensures the
// default bucket exists, and applies a public-read policy so the monitoring
// service can serve stored artifacts. It retains no state after completion.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"mlmonitor/internal/storage"
)

type Provisioner struct {
	store        storage.Provider
	bucket       string
	pollInterval time.Duration
	maxWait      time.Duration
}

func New(store storage.Provider, bucket string, pollInterval, maxWait time.Duration) *Provisioner {
	return &Provisioner{
		store:        store,
		bucket:       bucket,
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}
}

// WaitReady polls the storage service until it responds or the overall
// deadline expires. Transient unreachability is retried, never fatal.
func (p *Provisioner) WaitReady(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.pollInterval
	bo.MaxInterval = p.pollInterval * 4
	bo.MaxElapsedTime = p.maxWait

	err := backoff.RetryNotify(
		func() error { return p.store.Ping(ctx) },
		backoff.WithContext(bo, ctx),
		func(err error, next time.Duration) {
			slog.Info("storage service not ready, retrying", "error", err, "next_attempt_in", next)
		},
	)
	if err != nil {
		return fmt.Errorf("storage service did not become ready within %s: %w", p.maxWait, err)
	}
	return nil
}

// Run executes the full provisioning sequence once.
func (p *Provisioner) Run(ctx context.Context) error {
	if err := p.WaitReady(ctx); err != nil {
		return err
	}
	slog.Info("storage service is ready")

	if err := p.store.CreateBucket(ctx, p.bucket); err != nil {
		return fmt.Errorf("error provisioning bucket: %w", err)
	}

	if err := p.store.SetBucketPolicy(ctx, p.bucket, storage.PublicReadPolicy(p.bucket)); err != nil {
		return fmt.Errorf("error applying bucket policy: %w", err)
	}

	slog.Info("provisioning complete", "bucket", p.bucket)
	return nil
}
