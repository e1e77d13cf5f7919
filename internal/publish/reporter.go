// Package publish delivers state snapshots to the remote collector API with
// bounded retries. Delivery is best effort, the tracker never blocks on it.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/leighmacdonald/slottrack/internal/tracker"
)

var (
	// ErrRejected marks a permanent failure, the collector understood the
	// request and refused it. Retrying the same payload is pointless.
	ErrRejected = errors.New("collector rejected the payload")
	// ErrUnavailable marks a transient failure worth retrying.
	ErrUnavailable = errors.New("collector unavailable")

	errEncodeSnapshot = errors.New("failed to encode snapshot")
)

// Reporter sends a single snapshot to the collector.
type Reporter interface {
	Report(ctx context.Context, snapshot tracker.Snapshot) error
}

// HTTPDoer lets tests substitute the transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPReporter(client HTTPDoer, endpoint string, apiKey string, serverID string) *HTTPReporter {
	return &HTTPReporter{
		client:   client,
		endpoint: endpoint,
		apiKey:   apiKey,
		serverID: serverID,
	}
}

// HTTPReporter posts snapshots as JSON to the configured collector endpoint.
type HTTPReporter struct {
	client   HTTPDoer
	endpoint string
	apiKey   string
	serverID string
}

func (r *HTTPReporter) Report(ctx context.Context, snapshot tracker.Snapshot) error {
	body, errBody := json.Marshal(snapshot)
	if errBody != nil {
		return errors.Join(errBody, errEncodeSnapshot)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if errReq != nil {
		return errors.Join(errReq, ErrRejected)
	}

	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}
	req.Header.Set("X-Server-ID", r.serverID)

	resp, errResp := r.client.Do(req)
	if errResp != nil {
		// Timeouts and connection failures are transient by definition.
		return errors.Join(errResp, ErrUnavailable)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
}
