package encoding_test

import (
	"path/filepath"
	"testing"

	"reel/internal/encoding"
)

func TestOutputLayout(t *testing.T) {
	root := "/srv/media"
	if got := encoding.OutputDir(root, "asset-1"); got != filepath.Join(root, "asset-1") {
		t.Fatalf("OutputDir = %q", got)
	}
	if got := encoding.ManifestPath(root, "asset-1"); got != filepath.Join(root, "asset-1", "index.m3u8") {
		t.Fatalf("ManifestPath = %q", got)
	}
	if got := encoding.SegmentPath(root, "asset-1", 7); got != filepath.Join(root, "asset-1", "segment_00007.ts") {
		t.Fatalf("SegmentPath = %q", got)
	}
}

func TestManifestURLDeterministic(t *testing.T) {
	got := encoding.ManifestURL("http://cdn.example.com", "asset-1")
	want := "http://cdn.example.com/media/asset-1/index.m3u8"
	if got != want {
		t.Fatalf("ManifestURL = %q, want %q", got, want)
	}

	// Trailing slash on the base must not double up.
	if got := encoding.ManifestURL("http://cdn.example.com/", "asset-1"); got != want {
		t.Fatalf("ManifestURL with trailing slash = %q, want %q", got, want)
	}
}

func TestSegmentPatternZeroPadded(t *testing.T) {
	a := encoding.SegmentPath("/m", "a", 2)
	b := encoding.SegmentPath("/m", "a", 10)
	if !(a < b) {
		t.Fatalf("lexical order must match numeric order: %q vs %q", a, b)
	}
}
