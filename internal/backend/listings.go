package backend

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"dreamhome/internal/domain"
	"dreamhome/internal/images"
	applog "dreamhome/internal/log"
	"dreamhome/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Server) ListAll(c *fiber.Ctx) error {
	ls, err := s.Listings.All()
	if err != nil {
		return err
	}
	return c.JSON(ls)
}

func (s *Server) GetListing(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}
	l, err := s.Listings.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(l)
}

func (s *Server) ListByOwner(c *fiber.Ctx) error {
	uid := c.Params("userId")
	if uid != callerID(c) {
		return fail(c, fiber.StatusForbidden, "You can only view your own listings")
	}
	ls, err := s.Listings.ByOwner(uid)
	if err != nil {
		return err
	}
	return c.JSON(ls)
}

func (s *Server) CreateListing(c *fiber.Ctx) error {
	l, status, err := s.readListing(c)
	if err != nil {
		applog.Security(c, "mockapi.listing.invalid", map[string]any{"reason": err.Error()})
		return fail(c, status, err.Error())
	}
	uid := callerID(c)
	if l.UserRef != "" && l.UserRef != uid {
		return fail(c, fiber.StatusForbidden, "You can only create your own listings")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	l.ID = primitive.NewObjectID().Hex()
	l.UserRef = uid
	l.CreatedAt, l.UpdatedAt = now, now
	if err := s.Listings.Create(l); err != nil {
		return err
	}
	applog.Audit(c, "mockapi.listing.create", map[string]any{"listing_id": l.ID, "user_id": uid})
	return c.Status(fiber.StatusCreated).JSON(l)
}

func (s *Server) UpdateListing(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}
	existing, err := s.Listings.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}
	if err != nil {
		return err
	}
	uid := callerID(c)
	if existing.UserRef != uid {
		applog.Security(c, "mockapi.listing.update.denied", map[string]any{"listing_id": id, "user_id": uid})
		return fail(c, fiber.StatusForbidden, "You can only update your own listings")
	}
	l, status, err := s.readListing(c)
	if err != nil {
		return fail(c, status, err.Error())
	}
	l.ID = id
	l.UserRef = existing.UserRef
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.Listings.Update(l); err != nil {
		return err
	}
	applog.Audit(c, "mockapi.listing.update", map[string]any{"listing_id": id, "user_id": uid})
	return c.JSON(l)
}

func (s *Server) DeleteListing(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}
	existing, err := s.Listings.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, fiber.StatusNotFound, "Listing not found")
	}
	if err != nil {
		return err
	}
	uid := callerID(c)
	if existing.UserRef != uid {
		applog.Security(c, "mockapi.listing.delete.denied", map[string]any{"listing_id": id, "user_id": uid})
		return fail(c, fiber.StatusForbidden, "You can only delete your own listings")
	}
	if err := s.Listings.Delete(id); err != nil {
		return err
	}
	applog.Audit(c, "mockapi.listing.delete", map[string]any{"listing_id": id, "user_id": uid})
	return c.JSON(fiber.Map{"success": true, "message": "Listing has been deleted"})
}

// readListing accepts a JSON body or a multipart body with a "payload"
// JSON part and "files" parts. Every "file:<n>" in imageUrls is replaced
// by the URL of the stored upload.
func (s *Server) readListing(c *fiber.Ctx) (domain.Listing, int, error) {
	raw := c.Body()
	var files []*multipart.FileHeader
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return domain.Listing{}, fiber.StatusBadRequest, fmt.Errorf("malformed multipart body")
		}
		payload := form.Value["payload"]
		if len(payload) != 1 {
			return domain.Listing{}, fiber.StatusBadRequest, fmt.Errorf("payload part is required")
		}
		raw = []byte(payload[0])
		files = form.File["files"]
	}
	if err := validateDoc(s.schema, raw); err != nil {
		return domain.Listing{}, fiber.StatusBadRequest, err
	}
	var l domain.Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return domain.Listing{}, fiber.StatusBadRequest, fmt.Errorf("malformed JSON")
	}
	if !l.Offer {
		l.DiscountPrice = nil
	}
	if len(l.ImageURLs) > s.cfg.MaxImages {
		return domain.Listing{}, fiber.StatusBadRequest, fmt.Errorf("at most %d images are allowed", s.cfg.MaxImages)
	}
	urls, err := s.resolveImages(c, l.ImageURLs, files)
	if errors.Is(err, errStore) {
		applog.Error(c, "mockapi.upload.store", err, nil)
		return domain.Listing{}, fiber.StatusInternalServerError, errStore
	}
	if err != nil {
		return domain.Listing{}, fiber.StatusBadRequest, err
	}
	l.ImageURLs = urls
	return l, 0, nil
}

// resolveImages swaps each "file:<n>" ref for the stored upload's URL.
// On failure the uploads stored so far are removed again.
func (s *Server) resolveImages(c *fiber.Ctx, refs []string, files []*multipart.FileHeader) (urls []string, err error) {
	out := make([]string, 0, len(refs))
	used := make([]bool, len(files))
	var stored []string
	defer func() {
		if err != nil {
			s.removeUploads(c, stored)
		}
	}()
	for _, ref := range refs {
		n, ok := images.ParseFileRef(ref)
		if !ok {
			out = append(out, ref)
			continue
		}
		if n < 0 || n >= len(files) || used[n] {
			return nil, fmt.Errorf("image reference %q has no matching file", ref)
		}
		used[n] = true
		u, err := s.storeUpload(c, files[n])
		if err != nil {
			return nil, err
		}
		stored = append(stored, u)
		out = append(out, u)
	}
	return out, nil
}

func (s *Server) removeUploads(c *fiber.Ctx, urls []string) {
	for _, u := range urls {
		p := filepath.Join(s.cfg.MediaDir, "listings", path.Base(u))
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			applog.Error(c, "mockapi.upload.cleanup", err, map[string]any{"file": path.Base(u)})
		}
	}
}

var errStore = errors.New("could not store uploaded image")

var uploadExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (s *Server) storeUpload(c *fiber.Ctx, fh *multipart.FileHeader) (string, error) {
	ct := strings.ToLower(fh.Header.Get(fiber.HeaderContentType))
	ext, ok := uploadExt[ct]
	if !ok {
		return "", fmt.Errorf("%s: only JPEG, PNG, GIF and WebP images are accepted", fh.Filename)
	}
	name := uuid.NewString() + ext
	if err := c.SaveFile(fh, filepath.Join(s.cfg.MediaDir, "listings", name)); err != nil {
		return "", fmt.Errorf("%w: %s: %v", errStore, fh.Filename, err)
	}
	return path.Join(s.cfg.MediaURL, "listings", name), nil
}
