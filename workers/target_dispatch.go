// workers/target_dispatch.go
package workers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"

	"webar-publish-system/config"
	"webar-publish-system/utils"
)

// TargetJobDispatcher triggers the external mind-target compilation job
// for a pair. The trigger is fire-and-forget: the service marks the
// pair pending before calling Dispatch and only learns the real outcome
// through the completion callback. A Dispatch error means the trigger
// itself failed, and the caller marks the pair failed immediately.
type TargetJobDispatcher struct {
	Cfg        *config.Config
	HTTPClient *http.Client
}

func NewTargetJobDispatcher(cfg *config.Config) *TargetJobDispatcher {
	return &TargetJobDispatcher{
		Cfg:        cfg,
		HTTPClient: utils.HTTPClient,
	}
}

type dispatchPayload struct {
	PairID   string `json:"pair_id"`
	ImageURL string `json:"image_url"`
	APIBase  string `json:"api_base"`
}

// Dispatch triggers one compilation run for the pair. No retry policy
// exists at this layer; a failed run is re-triggered only by an
// operator through the retry endpoint.
func (d *TargetJobDispatcher) Dispatch(pairID, imageURL string) error {
	switch d.Cfg.DispatchMode {
	case config.DispatchModeExec:
		return d.dispatchExec(pairID, imageURL)
	default:
		return d.dispatchWorkflow(pairID, imageURL)
	}
}

// dispatchWorkflow POSTs a trigger to the remote workflow endpoint. The
// job secret itself travels out-of-band (the workflow holds its own
// copy); only the pair id and URLs go over the wire.
func (d *TargetJobDispatcher) dispatchWorkflow(pairID, imageURL string) error {
	if d.Cfg.DispatchURL == "" {
		return fmt.Errorf("DISPATCH_URL is not configured")
	}

	body, err := json.Marshal(dispatchPayload{
		PairID:   pairID,
		ImageURL: imageURL,
		APIBase:  d.Cfg.PublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to encode dispatch payload: %w", err)
	}

	req, err := http.NewRequest("POST", d.Cfg.DispatchURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.Cfg.DispatchToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.Cfg.DispatchToken)
	}

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call dispatch endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("dispatch endpoint returned status %d: %s", resp.StatusCode, string(msg))
	}

	log.Printf("📤 [DISPATCH] Triggered workflow for pair %s", pairID)
	return nil
}

// dispatchExec spawns the configured job command once. The process gets
// the pair id, public image URL and API base as argv, and the job
// secret via env so it never shows up in a process listing.
func (d *TargetJobDispatcher) dispatchExec(pairID, imageURL string) error {
	if d.Cfg.DispatchCommand == "" {
		return fmt.Errorf("DISPATCH_COMMAND is not configured")
	}

	cmd := exec.Command(d.Cfg.DispatchCommand, pairID, imageURL, d.Cfg.PublicBaseURL)
	cmd.Env = append(os.Environ(), "JOB_SECRET="+d.Cfg.JobSecret)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start job command: %w", err)
	}

	// Reap the process; the exit code is not the source of truth. The
	// job reports its outcome through the completion callback.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("⚠️ [DISPATCH] Job process for pair %s exited with error: %v", pairID, err)
		}
	}()

	log.Printf("📤 [DISPATCH] Spawned job process for pair %s", pairID)
	return nil
}
