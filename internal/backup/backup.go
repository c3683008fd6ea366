// Package backup copies the monitoring service's workspace directory into
// object storage and restores it back. Each backup lives under its own
// prefix so old snapshots remain retrievable.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"mlmonitor/internal/storage"
)

const backupRoot = "backups/"

type Manager struct {
	store  storage.Provider
	bucket string
}

func NewManager(store storage.Provider, bucket string) *Manager {
	return &Manager{store: store, bucket: bucket}
}

// Backup uploads the workspace directory under a new snapshot prefix and
// returns that prefix. An empty label uses a UTC timestamp.
func (m *Manager) Backup(ctx context.Context, workspaceDir, label string) (string, error) {
	if label == "" {
		label = time.Now().UTC().Format("20060102-150405")
	}
	if strings.ContainsAny(label, "/ ") {
		return "", fmt.Errorf("invalid backup label %q", label)
	}

	prefix := backupRoot + label + "/"
	if err := m.store.UploadDir(ctx, m.bucket, prefix, workspaceDir); err != nil {
		return "", fmt.Errorf("error backing up workspace %s: %w", workspaceDir, err)
	}

	slog.Info("workspace backup complete", "bucket", m.bucket, "prefix", prefix)
	return prefix, nil
}

// Restore downloads the named snapshot into dest.
func (m *Manager) Restore(ctx context.Context, label, dest string, overwrite bool) error {
	prefix := backupRoot + label + "/"

	objects, err := m.store.ListObjects(ctx, m.bucket, prefix)
	if err != nil {
		return fmt.Errorf("error listing backup %s: %w", label, err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("backup %q not found in bucket %s", label, m.bucket)
	}

	if err := m.store.DownloadDir(ctx, m.bucket, prefix, dest, overwrite); err != nil {
		return fmt.Errorf("error restoring backup %s: %w", label, err)
	}

	slog.Info("workspace restore complete", "bucket", m.bucket, "label", label, "dest", dest)
	return nil
}

// List returns the labels of all stored snapshots, oldest first.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	objects, err := m.store.ListObjects(ctx, m.bucket, backupRoot)
	if err != nil {
		return nil, fmt.Errorf("error listing backups: %w", err)
	}

	seen := make(map[string]bool)
	var labels []string
	for _, obj := range objects {
		rest := strings.TrimPrefix(obj.Name, backupRoot)
		label, _, ok := strings.Cut(rest, "/")
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}

	sort.Strings(labels)
	return labels, nil
}
