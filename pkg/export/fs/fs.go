package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/opst/seqmap/pkg/export"
)

// Store writes objects as files under a directory.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Put writes r into dir/key. Parent directories are created as needed.
//
// The file is replaced atomically: content is written to a temporary file and renamed.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, contentType string) (export.Info, error) {
	key, err := export.CleanKey(key)
	if err != nil {
		return export.Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return export.Info{}, err
	}

	dest := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return export.Info{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return export.Info{}, err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return export.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return export.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return export.Info{}, err
	}

	location, err := filepath.Abs(dest)
	if err != nil {
		location = dest
	}
	return export.Info{
		Driver:      export.DriverFS,
		Key:         key,
		Location:    location,
		Size:        size,
		ContentType: contentType,
	}, nil
}
