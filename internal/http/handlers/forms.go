package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"dreamhome/internal/images"

	"github.com/gofiber/fiber/v2"
)

var errNotImage = errors.New("only JPEG, PNG, GIF and WebP images can be uploaded")

// uploadTypes are sniffed from the bytes; the declared type is ignored.
var uploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// formValues flattens the posted form, multipart or urlencoded, keeping
// the first value of each key.
func formValues(c *fiber.Ctx) map[string]string {
	out := map[string]string{}
	if mf, err := c.MultipartForm(); err == nil {
		for k, vs := range mf.Value {
			if len(vs) > 0 {
				out[k] = vs[0]
			}
		}
		return out
	}
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		if _, seen := out[string(k)]; !seen {
			out[string(k)] = string(v)
		}
	})
	return out
}

// readFiles loads the files posted under field. Browsers send one empty
// part when nothing was chosen; it is skipped.
func readFiles(c *fiber.Ctx, field string, maxBytes int64) ([]images.LocalFile, error) {
	mf, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	var out []images.LocalFile
	for _, fh := range mf.File[field] {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		if fh.Size > maxBytes {
			return nil, fmt.Errorf("%s is larger than %d MB", fh.Filename, maxBytes>>20)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
		f.Close()
		if err != nil {
			return nil, err
		}
		ct := http.DetectContentType(data)
		if !uploadTypes[ct] {
			return nil, errNotImage
		}
		out = append(out, images.LocalFile{Name: fh.Filename, ContentType: ct, Data: data})
	}
	return out, nil
}
