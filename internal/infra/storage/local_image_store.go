package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gamestore/internal/usecase"

	"github.com/google/uuid"
)

const MaxImageSize = 5 << 20

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// LocalImageStore は商品画像をディスクに保存し、/uploads 配下のURLを返す。
type LocalImageStore struct {
	dir     string
	urlBase string
}

func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalImageStore{dir: dir, urlBase: "/uploads"}, nil
}

var _ usecase.ImageStore = (*LocalImageStore)(nil)

func (s *LocalImageStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", usecase.ErrUnsupportedImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	full := filepath.Join(s.dir, name)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}

	// 上限+1バイト読めたらサイズ超過
	n, err := io.Copy(f, io.LimitReader(r, MaxImageSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > MaxImageSize {
		err = usecase.ErrImageTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}

	return path.Join(s.urlBase, name), nil
}

// Delete は Save が返したURLのファイルを消す。無ければ何もしない。
func (s *LocalImageStore) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.urlBase+"/") {
		return nil
	}
	name := path.Base(url)
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
