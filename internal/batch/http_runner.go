package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jmylchreest/vidarr/internal/models"
)

// HTTPRunner drives a remote conversion controller over JSON/HTTP. It does
// not retry: transient failures surface to the dispatcher or reconciler,
// which try again on their next scheduled pass.
type HTTPRunner struct {
	baseURL string
	client  *http.Client
}

var _ Runner = (*HTTPRunner)(nil)

// NewHTTPRunner creates a runner talking to the controller at baseURL.
func NewHTTPRunner(baseURL string, timeout time.Duration) *HTTPRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRunner{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	ExternalID string `json:"external_id"`
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
	Preset     string `json:"preset"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type logResponse struct {
	Log string `json:"log"`
}

// Submit implements Runner.
func (r *HTTPRunner) Submit(ctx context.Context, job *models.ConversionJob) error {
	body, err := json.Marshal(submitRequest{
		ExternalID: job.ExternalID,
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		Preset:     job.Preset,
	})
	if err != nil {
		return fmt.Errorf("encoding submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("submitting job %s: %w", job.ExternalID, err)
	}
	defer drainAndClose(resp.Body)

	// 409 means the runner already knows the job, which is fine: the
	// deterministic external id makes re-submission idempotent.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("submitting job %s: unexpected status %d", job.ExternalID, resp.StatusCode)
	}
	return nil
}

// Status implements Runner.
func (r *HTTPRunner) Status(ctx context.Context, externalID string) (RunnerStatus, error) {
	resp, err := r.get(ctx, "/jobs/"+url.PathEscape(externalID))
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return StatusNotFound, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("querying job %s: unexpected status %d", externalID, resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("decoding job status: %w", err)
	}

	switch RunnerStatus(status.Status) {
	case StatusRunning, StatusSucceeded, StatusFailed, StatusNotFound:
		return RunnerStatus(status.Status), nil
	default:
		return "", fmt.Errorf("runner reported unknown status %q for job %s", status.Status, externalID)
	}
}

// Delete implements Runner.
func (r *HTTPRunner) Delete(ctx context.Context, externalID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.baseURL+"/jobs/"+url.PathEscape(externalID), nil)
	if err != nil {
		return fmt.Errorf("building delete request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("deleting job %s: %w", externalID, err)
	}
	defer drainAndClose(resp.Body)

	// Already gone is as good as deleted.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting job %s: unexpected status %d", externalID, resp.StatusCode)
	}
	return nil
}

// TailLog implements Runner.
func (r *HTTPRunner) TailLog(ctx context.Context, externalID string) (string, error) {
	resp, err := r.get(ctx, "/jobs/"+url.PathEscape(externalID)+"/log")
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching log for job %s: unexpected status %d", externalID, resp.StatusCode)
	}

	var logResp logResponse
	if err := json.NewDecoder(resp.Body).Decode(&logResp); err != nil {
		return "", fmt.Errorf("decoding job log: %w", err)
	}
	return logResp.Log, nil
}

func (r *HTTPRunner) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling runner: %w", err)
	}
	return resp, nil
}

func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
