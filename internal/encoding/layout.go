package encoding

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ManifestFilename is the fixed playlist name inside every asset's
	// output directory. Clients derive playback URLs from it without
	// consulting the encoder.
	ManifestFilename = "index.m3u8"

	// SegmentPattern names HLS segments with zero-padded indices so
	// lexical and playback order agree.
	SegmentPattern = "segment_%05d.ts"

	// SegmentSeconds is the target duration of each HLS segment.
	SegmentSeconds = 6
)

// OutputDir returns the directory holding an asset's HLS output.
func OutputDir(mediaRoot, assetID string) string {
	return filepath.Join(mediaRoot, assetID)
}

// ManifestPath returns the on-disk location of an asset's playlist.
func ManifestPath(mediaRoot, assetID string) string {
	return filepath.Join(OutputDir(mediaRoot, assetID), ManifestFilename)
}

// SegmentPath returns the on-disk location of one numbered segment.
func SegmentPath(mediaRoot, assetID string, index int) string {
	return filepath.Join(OutputDir(mediaRoot, assetID), fmt.Sprintf(SegmentPattern, index))
}

// ManifestURL derives the public playback URL for an asset. The mapping is
// deterministic: the asset id alone decides the URL, so reconciliation never
// depends on encoder output paths.
func ManifestURL(baseURL, assetID string) string {
	return strings.TrimRight(baseURL, "/") + "/media/" + assetID + "/" + ManifestFilename
}
