package data

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/unixpickle/essentials"
)

// Scan lists the labeled captcha images in a directory.
//
// The label for each image is its file name minus the
// extension, e.g. "3A7K9B.png" is labeled "3A7K9B".
// Files without a PNG or JPEG extension are skipped.
// Results are sorted by path so that scans are
// reproducible.
func Scan(dir string) ([]*Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, essentials.AddCtx("scan "+dir, err)
	}
	var samples []*Sample
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		switch strings.ToLower(ext) {
		case ".png", ".jpg", ".jpeg":
		default:
			continue
		}
		samples = append(samples, &Sample{
			Path:  filepath.Join(dir, name),
			Label: strings.TrimSuffix(name, ext),
		})
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Path < samples[j].Path
	})
	return samples, nil
}
