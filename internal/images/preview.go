package images

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskPreviewer writes each pending file under Dir and serves it below
// URLPrefix. Release deletes the file.
type DiskPreviewer struct {
	Dir       string
	URLPrefix string
}

func NewDiskPreviewer(dir, urlPrefix string) (*DiskPreviewer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskPreviewer{Dir: dir, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (p *DiskPreviewer) Acquire(f LocalFile) (string, error) {
	name := uuid.NewString() + safeExt(f.Name)
	if err := os.WriteFile(filepath.Join(p.Dir, name), f.Data, 0o644); err != nil {
		return "", err
	}
	return p.URLPrefix + "/" + name, nil
}

func (p *DiskPreviewer) Release(preview string) error {
	if !strings.HasPrefix(preview, p.URLPrefix+"/") {
		return fmt.Errorf("preview %q not owned by this previewer", preview)
	}
	name := path.Base(preview)
	err := os.Remove(filepath.Join(p.Dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	}
	return ""
}

// InlinePreviewer encodes the file as a data URL at selection time; there
// is nothing to release.
type InlinePreviewer struct{}

func (InlinePreviewer) Acquire(f LocalFile) (string, error) {
	ct := f.ContentType
	if ct == "" {
		ct = http.DetectContentType(f.Data)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(f.Data), nil
}

func (InlinePreviewer) Release(string) error { return nil }
