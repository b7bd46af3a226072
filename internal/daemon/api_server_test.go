package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"reel/internal/api"
	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/encoding"
	"reel/internal/logging"
	"reel/internal/media"
	"reel/internal/queue"
	"reel/internal/testsupport"
	"reel/internal/workflow"
)

type stalledInvoker struct{}

func (stalledInvoker) Encode(ctx context.Context, req encoding.Request) (encoding.Result, error) {
	<-ctx.Done()
	return encoding.Result{}, ctx.Err()
}

func startDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, string, *queue.Store, *media.Store) {
	t.Helper()
	jobs, assets, db := testsupport.MustOpenStores(t, cfg)

	wf := workflow.NewManager(cfg, db, jobs, assets, stalledInvoker{}, logging.NewNop())
	d, err := daemon.New(cfg, db, jobs, assets, wf, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.APIAddr(), jobs, assets
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestSubmitJobLifecycleOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base, _, assets := startDaemon(t, cfg)
	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")

	resp := postJSON(t, base+"/api/jobs", api.SubmitJobRequest{AssetID: asset.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d, want 201", resp.StatusCode)
	}
	created := decodeBody[api.JobPayload](t, resp)
	if created.Status != "pending" || created.AssetID != asset.ID {
		t.Fatalf("unexpected job payload: %+v", created)
	}

	resp = getJSON(t, base+"/api/jobs/"+created.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	fetched := decodeBody[api.JobPayload](t, resp)
	if fetched.ID != created.ID {
		t.Fatalf("fetched wrong job: %s", fetched.ID)
	}

	resp = getJSON(t, base+"/api/jobs?limit=10")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	listed := decodeBody[api.JobListPayload](t, resp)
	if len(listed.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(listed.Jobs))
	}
}

func TestSubmitJobErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base, _, assets := startDaemon(t, cfg)
	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")

	// Unknown asset.
	resp := postJSON(t, base+"/api/jobs", api.SubmitJobRequest{AssetID: "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown asset status = %d, want 404", resp.StatusCode)
	}
	errPayload := decodeBody[api.ErrorPayload](t, resp)
	if errPayload.Error == "" {
		t.Fatalf("error body should carry a message")
	}

	// Missing asset_id.
	resp = postJSON(t, base+"/api/jobs", api.SubmitJobRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing asset_id status = %d, want 400", resp.StatusCode)
	}

	// Duplicate active job.
	if resp := postJSON(t, base+"/api/jobs", api.SubmitJobRequest{AssetID: asset.ID}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first submit status = %d", resp.StatusCode)
	}
	resp = postJSON(t, base+"/api/jobs", api.SubmitJobRequest{AssetID: asset.ID})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate submit status = %d, want 409", resp.StatusCode)
	}

	// Malformed body.
	raw, err := http.Post(base+"/api/jobs", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", raw.StatusCode)
	}

	// Bad limit.
	resp = getJSON(t, base+"/api/jobs?limit=abc")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", resp.StatusCode)
	}
}

func TestAssetEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base, _, _ := startDaemon(t, cfg)

	resp := postJSON(t, base+"/api/assets", api.CreateAssetRequest{
		Title:     "Big Buck Bunny",
		SourceURL: "https://example.com/bbb.mp4",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create asset status = %d, want 201", resp.StatusCode)
	}
	created := decodeBody[api.AssetPayload](t, resp)
	if created.ID == "" || created.ManifestURL != "" {
		t.Fatalf("unexpected asset payload: %+v", created)
	}

	resp = getJSON(t, base+"/api/assets/"+created.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get asset status = %d, want 200", resp.StatusCode)
	}

	resp = getJSON(t, base+"/api/assets/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing asset status = %d, want 404", resp.StatusCode)
	}

	resp = postJSON(t, base+"/api/assets", api.CreateAssetRequest{Title: "No Source"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid asset status = %d, want 400", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base, _, assets := startDaemon(t, cfg)
	asset := testsupport.NewAsset(t, assets, "Sample", "https://example.com/sample.mp4")

	if resp := postJSON(t, base+"/api/jobs", api.SubmitJobRequest{AssetID: asset.ID}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp := getJSON(t, base+"/api/status")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status endpoint = %d, want 200", resp.StatusCode)
		}
		status := decodeBody[api.StatusPayload](t, resp)
		if status.Total == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never reported the job: %+v", status)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base, _, _ := startDaemon(t, cfg)

	req, err := http.NewRequest(http.MethodDelete, base+"/api/jobs", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startDaemon(t, cfg)

	// A second daemon over the same lock directory must refuse to start.
	jobs2, assets2, dbHandle := testsupport.MustOpenStores(t, cfg)
	wf := workflow.NewManager(cfg, dbHandle, jobs2, assets2, stalledInvoker{}, logging.NewNop())
	second, err2 := daemon.New(cfg, dbHandle, jobs2, assets2, wf, logging.NewNop())
	if err2 != nil {
		t.Fatalf("daemon.New: %v", err2)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatalf("expected second daemon start to fail")
	}
}
