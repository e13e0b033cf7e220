// Package storage holds recipe images and user avatars.
//
// Images reach the API as data URIs inside JSON bodies. DecodeDataURI turns
// one into bytes plus a content type; an ImageStore then persists the bytes
// under a generated key and later turns that key into a public URL. The
// database only ever stores keys, so moving from the local driver to S3 needs
// no data migration beyond copying files.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize is the largest decoded image accepted.
const MaxImageSize = 5 << 20

// Key prefixes for the two kinds of image.
const (
	RecipeImagePrefix = "recipes/images"
	AvatarPrefix      = "users/avatars"
)

var (
	ErrInvalidImage  = errors.New("storage: invalid image data")
	ErrImageTooLarge = errors.New("storage: image too large")
)

// ImageStore persists image bytes by key.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public address of key; an empty key yields "".
	URL(key string) string
}

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

var allowedTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// DecodeDataURI parses "data:image/<type>;base64,<payload>". The declared type
// must be one of png, jpeg, gif or webp and must agree with the sniffed
// content, so a renamed executable cannot pass as a picture.
func DecodeDataURI(uri string) (*Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return nil, fmt.Errorf("%w: expected a data URI", ErrInvalidImage)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidImage)
	}

	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, fmt.Errorf("%w: only base64 data URIs are supported", ErrInvalidImage)
	}
	contentType = strings.ToLower(contentType)
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}

	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidImage, contentType)
	}

	// Rough pre-check so a huge payload is rejected before it is decoded.
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize+3 {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, MaxImageSize)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, MaxImageSize)
	}

	if sniffed := http.DetectContentType(data); sniffed != contentType {
		return nil, fmt.Errorf("%w: content is %s, declared %s", ErrInvalidImage, sniffed, contentType)
	}

	return &Image{Data: data, ContentType: contentType, Ext: ext}, nil
}

// NewKey returns a fresh object key such as "recipes/images/<uuid>.png".
func NewKey(prefix, ext string) string {
	return prefix + "/" + uuid.NewString() + "." + ext
}
