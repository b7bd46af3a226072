package encoding

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"reel/internal/services"
)

var commandContext = exec.CommandContext

// Request describes one encode of a source into an asset's output directory.
type Request struct {
	JobID     string
	AssetID   string
	SourceURL string
	OutputDir string
}

// Result reports where the encoder wrote the playlist.
type Result struct {
	ManifestPath string
}

// Invoker runs the external encoder for one job.
type Invoker interface {
	Encode(ctx context.Context, req Request) (Result, error)
}

// Option configures the CLI invoker.
type Option func(*CLI)

// WithBinary overrides the default encoder binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithMaxWidth caps output width in pixels. Narrower sources are passed
// through at native resolution.
func WithMaxWidth(width int) Option {
	return func(c *CLI) {
		if width > 0 {
			c.maxWidth = width
		}
	}
}

// WithTimeout bounds a single encode's wall-clock runtime.
func WithTimeout(timeout time.Duration) Option {
	return func(c *CLI) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// CLI invokes ffmpeg to produce a VOD HLS rendition.
type CLI struct {
	binary   string
	maxWidth int
	timeout  time.Duration
}

// NewCLI constructs an ffmpeg invoker using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", maxWidth: 1280, timeout: 2 * time.Hour}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Encode runs ffmpeg against the request's source and waits for it to exit.
// Failures are classified: processes that never start, processes that exit
// non-zero, and processes killed at the runtime ceiling each carry a
// distinct error marker.
func (c *CLI) Encode(ctx context.Context, req Request) (Result, error) {
	if req.SourceURL == "" {
		return Result{}, services.Wrap(services.ErrValidation, "encoding", "encode", "source url required", nil)
	}
	if req.OutputDir == "" {
		return Result{}, services.Wrap(services.ErrValidation, "encoding", "encode", "output directory required", nil)
	}
	if err := EnsureOutputDir(req.OutputDir); err != nil {
		return Result{}, services.Wrap(services.ErrSpawn, "encoding", "prepare output", req.OutputDir, err)
	}

	encodeCtx := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		encodeCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	manifestPath := manifestPathIn(req.OutputDir)
	cmd := commandContext(encodeCtx, c.binary, c.buildArgs(req.SourceURL, req.OutputDir, manifestPath)...) //nolint:gosec

	stderr := newTailBuffer(4096)
	cmd.Stderr = stderr

	// ffmpeg spawns helpers; put the encode in its own process group so
	// cancellation kills the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Start(); err != nil {
		return Result{}, services.Wrap(services.ErrSpawn, "encoding", "start encoder", c.binary, err)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		if encodeCtx.Err() != nil && ctx.Err() == nil {
			return Result{}, services.Wrap(services.ErrTimeout, "encoding", "encode",
				fmt.Sprintf("exceeded %s runtime ceiling", c.timeout), nil)
		}
		if ctx.Err() != nil {
			return Result{}, services.Wrap(services.ErrTimeout, "encoding", "encode", "canceled", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			detail := fmt.Sprintf("encoder exited with code %d", exitErr.ExitCode())
			if tail := stderr.Tail(); tail != "" {
				detail += ": " + tail
			}
			return Result{}, services.Wrap(services.ErrEncode, "encoding", "encode", detail, nil)
		}
		return Result{}, services.Wrap(services.ErrEncode, "encoding", "encode", "encoder failed", waitErr)
	}

	if err := VerifyManifest(manifestPath); err != nil {
		return Result{}, services.Wrap(services.ErrEncode, "encoding", "verify output", "", err)
	}

	return Result{ManifestPath: manifestPath}, nil
}

func (c *CLI) buildArgs(sourceURL, outputDir, manifestPath string) []string {
	// Downscale-only: min(iw, cap) never upscales, -2 keeps the encoder's
	// required even height.
	scale := fmt.Sprintf("scale='min(iw,%d)':-2", c.maxWidth)
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", sourceURL,
		"-vf", scale,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", SegmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_list_size", "0",
		"-hls_segment_filename", segmentTemplateIn(outputDir),
		manifestPath,
	}
}

var _ Invoker = (*CLI)(nil)

// tailBuffer keeps the last max bytes written to it, so failure messages
// carry the end of the encoder's stderr rather than megabytes of log.
type tailBuffer struct {
	max  int
	data []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	if len(b.data) > b.max {
		b.data = b.data[len(b.data)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) Tail() string {
	return strings.TrimSpace(string(b.data))
}
