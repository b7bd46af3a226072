package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"reel/internal/api"
	"reel/internal/daemon"
	"reel/internal/encoding"
	"reel/internal/logging"
	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/testsupport"
	"reel/internal/workflow"
)

type idleInvoker struct{}

func (idleInvoker) Encode(ctx context.Context, req encoding.Request) (encoding.Result, error) {
	<-ctx.Done()
	return encoding.Result{}, ctx.Err()
}

func startTestDaemon(t *testing.T) (string, *media.Store, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	jobs, assets, db := testsupport.MustOpenStores(t, cfg)
	wf := workflow.NewManager(cfg, db, jobs, assets, idleInvoker{}, logging.NewNop())
	d, err := daemon.New(cfg, db, jobs, assets, wf, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d.APIAddr(), assets, jobs
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLISubmitAndShow(t *testing.T) {
	addr, assets, _ := startTestDaemon(t)
	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")

	out, err := runCLI(t, "--addr", addr, "submit", asset.ID)
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queued job") {
		t.Fatalf("unexpected submit output: %q", out)
	}

	out, err = runCLI(t, "--addr", addr, "--json", "jobs")
	if err != nil {
		t.Fatalf("jobs: %v\n%s", err, out)
	}
	var jobs []api.JobPayload
	if err := json.Unmarshal([]byte(out), &jobs); err != nil {
		t.Fatalf("parse jobs output: %v\n%s", err, out)
	}
	if len(jobs) != 1 || jobs[0].AssetID != asset.ID {
		t.Fatalf("unexpected jobs payload: %+v", jobs)
	}

	out, err = runCLI(t, "--addr", addr, "show", jobs[0].ID)
	if err != nil {
		t.Fatalf("show: %v\n%s", err, out)
	}
	if !strings.Contains(out, jobs[0].ID) {
		t.Fatalf("show output missing job id: %q", out)
	}
}

func TestCLISubmitConflictSurfacesError(t *testing.T) {
	addr, assets, _ := startTestDaemon(t)
	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")

	if out, err := runCLI(t, "--addr", addr, "submit", asset.ID); err != nil {
		t.Fatalf("first submit: %v\n%s", err, out)
	}
	if _, err := runCLI(t, "--addr", addr, "submit", asset.ID); err == nil {
		t.Fatalf("expected conflict error on second submit")
	}
}

func TestCLIAssetAddAndStatus(t *testing.T) {
	addr, _, _ := startTestDaemon(t)

	out, err := runCLI(t, "--addr", addr, "--json", "asset", "add", "--title", "Bunny", "https://example.com/bbb.mp4")
	if err != nil {
		t.Fatalf("asset add: %v\n%s", err, out)
	}
	var asset api.AssetPayload
	if err := json.Unmarshal([]byte(out), &asset); err != nil {
		t.Fatalf("parse asset output: %v\n%s", err, out)
	}
	if asset.Title != "Bunny" {
		t.Fatalf("unexpected asset: %+v", asset)
	}

	out, err = runCLI(t, "--addr", addr, "asset", "show", asset.ID)
	if err != nil {
		t.Fatalf("asset show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "not yet transcoded") {
		t.Fatalf("expected manifest placeholder, got %q", out)
	}

	out, err = runCLI(t, "--addr", addr, "--json", "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	var status api.StatusPayload
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("parse status output: %v\n%s", err, out)
	}
	if status.Total != 0 {
		t.Fatalf("expected empty queue, got %+v", status)
	}
}

func TestStatusLabel(t *testing.T) {
	if got := statusLabel("pending"); got != "Pending" {
		t.Fatalf("statusLabel = %q", got)
	}
}
