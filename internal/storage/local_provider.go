package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalProvider stores objects on the local filesystem under dir/bucket/key.
// It is not intended for production, it is a simple implementation for tests
// and local development without a storage service.
type LocalProvider struct {
	dir      string
	policies map[string]string
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(dir string) *LocalProvider {
	return &LocalProvider{dir: dir, policies: make(map[string]string)}
}

func (p *LocalProvider) Ping(ctx context.Context) error {
	if _, err := os.Stat(p.dir); err != nil {
		return fmt.Errorf("storage directory unavailable: %w", err)
	}
	return nil
}

func (p *LocalProvider) CreateBucket(ctx context.Context, bucket string) error {
	return os.MkdirAll(filepath.Join(p.dir, bucket), os.ModePerm)
}

func (p *LocalProvider) SetBucketPolicy(ctx context.Context, bucket, policy string) error {
	if _, err := os.Stat(filepath.Join(p.dir, bucket)); err != nil {
		return fmt.Errorf("bucket %s does not exist: %w", bucket, err)
	}
	p.policies[bucket] = policy
	return nil
}

// BucketPolicy returns the policy applied to a bucket, for test assertions.
func (p *LocalProvider) BucketPolicy(bucket string) string {
	return p.policies[bucket]
}

func (p *LocalProvider) PutObject(ctx context.Context, bucket, key string, data io.Reader) error {
	path := filepath.Join(p.dir, bucket, key)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, data)
	return err
}

func (p *LocalProvider) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.dir, bucket, key))
}

func (p *LocalProvider) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	root := filepath.Join(p.dir, bucket)

	var objects []Object
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		key := filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(path, root), string(os.PathSeparator)))
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, Object{Name: key, Size: info.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (p *LocalProvider) DeleteObjects(ctx context.Context, bucket, prefix string) error {
	objects, err := p.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		if err := os.Remove(filepath.Join(p.dir, bucket, obj.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (p *LocalProvider) UploadDir(ctx context.Context, bucket, prefix, src string) error {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		key := prefix + filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(path, src), string(os.PathSeparator)))

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		return p.PutObject(ctx, bucket, key, file)
	})
}

func (p *LocalProvider) DownloadDir(ctx context.Context, bucket, prefix, dest string, overwrite bool) error {
	if _, err := os.Stat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("destination %s already exists and overwrite is false", dest)
		}
		if err := os.RemoveAll(dest); err != nil {
			return err
		}
	}

	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	objects, err := p.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		data, err := p.GetObject(ctx, bucket, obj.Name)
		if err != nil {
			return err
		}

		localPath := filepath.Join(dest, strings.TrimPrefix(obj.Name, prefix))
		if err := os.MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
			return err
		}
		if err := os.WriteFile(localPath, data, 0o644); err != nil {
			return err
		}
	}

	return nil
}
