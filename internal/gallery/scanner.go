package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"bedrockctl/internal/common/fsutil"
)

// imageNamePattern matches the filenames the generator writes. Nothing else
// in the directory is served.
var imageNamePattern = regexp.MustCompile(`^generated_image_[A-Za-z0-9_.-]+\.png$`)

// Image is one generated file visible in the gallery.
type Image struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ScanDir lists generated images in dir, newest first. Subdirectories and
// files that do not match the generated-image naming are skipped.
func ScanDir(dir string) ([]Image, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var images []Image
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !imageNamePattern.MatchString(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		images = append(images, Image{Name: name, SizeBytes: info.Size(), ModifiedAt: info.ModTime()})
	}
	sort.Slice(images, func(i, j int) bool {
		if !images[i].ModifiedAt.Equal(images[j].ModifiedAt) {
			return images[i].ModifiedAt.After(images[j].ModifiedAt)
		}
		return images[i].Name < images[j].Name
	})
	return images, nil
}

// validImageName rejects anything that is not a plain generated-image
// filename, including path traversal attempts.
func validImageName(name string) bool {
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return imageNamePattern.MatchString(name)
}
