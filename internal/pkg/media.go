package pkg

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	ErrNotAnImage  = errors.New("upload a valid image. The file you uploaded was either not an image or a corrupted image")
	ErrImageTooBig = errors.New("image is too large")
)

const MaxImageSize = 5 << 20

var imageExt = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
}

// MediaStore 本地文件存储，数据库里只保存相对路径
type MediaStore struct {
	Root      string // 磁盘目录
	URLPrefix string // 对外访问前缀，如 /media/
}

func NewMediaStore(root, urlPrefix string) *MediaStore {
	if urlPrefix == "" {
		urlPrefix = "/media/"
	}
	return &MediaStore{Root: root, URLPrefix: urlPrefix}
}

// SaveImage 校验图片格式后保存到 <root>/<dir>/<uuid><ext>，返回相对路径
func (m *MediaStore) SaveImage(dir string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxImageSize {
		return "", ErrImageTooBig
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	_, format, err := image.DecodeConfig(src)
	if err != nil {
		return "", ErrNotAnImage
	}
	ext, ok := imageExt[format]
	if !ok {
		return "", ErrNotAnImage
	}
	if _, err = src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	rel := path.Join(dir, uuid.NewString()+ext)
	dst := filepath.Join(m.Root, filepath.FromSlash(rel))
	if err = os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err = io.Copy(out, src); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	return rel, out.Close()
}

// Remove 删除旧文件，文件不存在时忽略
func (m *MediaStore) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(m.Root, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// URL 模板中使用的访问地址
func (m *MediaStore) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return m.URLPrefix + rel
}
