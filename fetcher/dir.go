package fetcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
)

// Dir serves resources from a file system, usually os.DirFS or an embed.FS.
type Dir struct {
	fsys fs.FS
}

// NewDir wraps fsys.
func NewDir(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

// NewDirPath serves resources below root on the local disk.
func NewDirPath(root string) *Dir {
	return NewDir(os.DirFS(root))
}

func (d *Dir) FetchSync(path string) (string, error) {
	data, err := fs.ReadFile(d.fsys, path)
	if err != nil {
		return "", fmt.Errorf("dir fetch %s: %w", path, err)
	}
	return string(data), nil
}

func (d *Dir) Fetch(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.FetchSync(path)
}
