package encoding

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureOutputDir creates the asset output directory if needed.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}
	return nil
}

// VerifyManifest confirms the encoder left a non-empty playlist behind.
func VerifyManifest(manifestPath string) error {
	info, err := os.Stat(manifestPath)
	if err != nil {
		return fmt.Errorf("manifest %q missing after encode: %w", manifestPath, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("manifest %q is empty", manifestPath)
	}
	return nil
}

func manifestPathIn(outputDir string) string {
	return filepath.Join(outputDir, ManifestFilename)
}

func segmentTemplateIn(outputDir string) string {
	return filepath.Join(outputDir, SegmentPattern)
}
