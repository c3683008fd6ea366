package integrationtests

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlmonitor/internal/backup"
	"mlmonitor/internal/provision"
	"mlmonitor/internal/storage"
)

func newMinioProvider(t *testing.T, ctx context.Context) *storage.S3Provider {
	endpoint := setupMinioContainer(t, ctx)

	store, err := storage.NewS3Provider(storage.S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
		Region:          "us-east-1",
	})
	require.NoError(t, err)

	return store
}

func TestProvisionBucket(t *testing.T) {
	ctx := context.Background()
	store := newMinioProvider(t, ctx)

	provisioner := provision.New(store, "evidently", 500*time.Millisecond, 30*time.Second)
	require.NoError(t, provisioner.Run(ctx))

	// Running again must succeed: the bucket already exists.
	require.NoError(t, provisioner.Run(ctx))

	require.NoError(t, store.PutObjectBytes(ctx, "evidently", "reports/report.html", []byte("<html></html>")))

	data, err := store.GetObject(ctx, "evidently", "reports/report.html")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	objects, err := store.ListObjects(ctx, "evidently", "reports/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "reports/report.html", objects[0].Name)
	assert.Equal(t, int64(len("<html></html>")), objects[0].Size)
}

func TestBackupRestoreAgainstMinio(t *testing.T) {
	ctx := context.Background()
	store := newMinioProvider(t, ctx)

	provisioner := provision.New(store, "evidently", 500*time.Millisecond, 30*time.Second)
	require.NoError(t, provisioner.Run(ctx))

	workspace := t.TempDir()
	writeFile(t, workspace, "projects/demo/config.json", `{"name": "demo"}`)
	writeFile(t, workspace, "datasets/reference.csv", "a,b\n1,2\n")

	manager := backup.NewManager(store, "evidently")

	prefix, err := manager.Backup(ctx, workspace, "nightly")
	require.NoError(t, err)
	assert.Equal(t, "backups/nightly/", prefix)

	labels, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"nightly"}, labels)

	dest := t.TempDir() + "/restored"
	require.NoError(t, manager.Restore(ctx, "nightly", dest, false))

	assert.Equal(t, `{"name": "demo"}`, readFile(t, dest, "projects/demo/config.json"))
	assert.Equal(t, "a,b\n1,2\n", readFile(t, dest, "datasets/reference.csv"))

	err = manager.Restore(ctx, "missing", dest, true)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))
}
