// utils/storagekey.go
package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// MakeStorageKey builds a collision-resistant object key:
// kind prefix + random uuid + sanitized original filename.
// e.g. "image/1f2e3d4c-....-cat-photo.jpg"
func MakeStorageKey(kind, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	name := slug.Make(base)
	if name == "" {
		name = "file"
	}

	return fmt.Sprintf("%s/%s-%s%s", kind, uuid.NewString(), name, ext)
}
