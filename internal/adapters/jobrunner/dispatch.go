package jobrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/creatorhub/jobcore/internal/domain/model"
)

// Dispatch error codes.
const (
	ErrorCodeDispatchUnavailable = "DISPATCH_UNAVAILABLE"
	ErrorCodeDispatchStatus      = "DISPATCH_STATUS"
	ErrorCodeDispatchResponse    = "DISPATCH_BAD_RESPONSE"
)

const (
	maxResponseBodyBytes = 1 << 20 // results above this size are rejected
	maxErrorBodyBytes    = 4 * 1024
)

// dispatchRequest is the body POSTed to collaborators.
type dispatchRequest struct {
	JobID      string          `json:"job_id"`
	OwnerID    string          `json:"owner_id"`
	Type       model.JobType   `json:"type"`
	Parameters json.RawMessage `json:"parameters"`
	Attempt    int             `json:"attempt"`
}

// HTTPDispatchHandler forwards a job to a collaborator endpoint and uses the JSON response as the result.
type HTTPDispatchHandler struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

var _ Handler = (*HTTPDispatchHandler)(nil)

// NewHTTPDispatchHandlers builds one handler per configured job type.
func NewHTTPDispatchHandlers(
	urls map[string]string,
	client *http.Client,
	timeout time.Duration,
) (map[model.JobType]Handler, error) {
	if client == nil {
		client = &http.Client{}
	}
	out := make(map[model.JobType]Handler, len(urls))
	for rawType, rawURL := range urls {
		var jt model.JobType
		if err := jt.UnmarshalText([]byte(rawType)); err != nil {
			return nil, fmt.Errorf("dispatch url for %q: %w", rawType, err)
		}
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("dispatch url for %s must be an absolute http(s) URL: %q", jt, rawURL)
		}
		out[jt] = &HTTPDispatchHandler{URL: u.String(), Client: client, Timeout: timeout}
	}
	return out, nil
}

// Handle implements Handler.
func (h *HTTPDispatchHandler) Handle(
	ctx context.Context,
	job *model.Job,
	progress ProgressReporter,
) (json.RawMessage, error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	if err := progress.Report(ctx, 0, "dispatched"); err != nil {
		return nil, err
	}

	body, err := json.Marshal(dispatchRequest{
		JobID:      job.ID,
		OwnerID:    job.OwnerID,
		Type:       job.Type,
		Parameters: job.Parameters,
		Attempt:    job.RetryCount + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("encode dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Job-ID", job.ID)

	resp, err := h.client().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Failure{Code: ErrorCodeDispatchUnavailable, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := readLimited(resp.Body, maxErrorBodyBytes)
		details, _ := json.Marshal(map[string]any{"status": resp.StatusCode, "body": string(snippet)})
		return nil, &Failure{
			Code:    ErrorCodeDispatchStatus,
			Message: "collaborator responded " + strconv.Itoa(resp.StatusCode),
			Details: details,
		}
	}

	data, err := readLimited(resp.Body, maxResponseBodyBytes)
	if err != nil {
		return nil, &Failure{Code: ErrorCodeDispatchResponse, Message: err.Error()}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if err := model.ValidateOptionalDocument(data); err != nil {
		return nil, &Failure{Code: ErrorCodeDispatchResponse, Message: "response is not JSON: " + err.Error()}
	}
	return data, nil
}

func (h *HTTPDispatchHandler) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

var errBodyTooLarge = errors.New("response body too large")

// readLimited reads at most limit bytes and reports errBodyTooLarge beyond that.
func readLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return data[:limit], errBodyTooLarge
	}
	return data, nil
}
