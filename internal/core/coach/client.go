// Package coach is the HTTP client for the remote coaching orchestrator.
// The orchestrator itself (retrieval, rerank, prompt design) is a black box;
// only its request/response contract lives here.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/steadyapp/steady/internal/core"
)

// requestTimeout bounds one coaching call. The background upgrade task relies
// on this so it can never hang on a stuck orchestrator.
const requestTimeout = 20 * time.Second

type OrchestratorClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewOrchestratorClient builds the client. Both the endpoint and credential
// must be present; the caller is expected to skip construction otherwise.
func NewOrchestratorClient(baseURL, apiKey string) (*OrchestratorClient, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("orchestrator endpoint or credential missing")
	}
	return &OrchestratorClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
	}, nil
}

// RequestCoachingMessage performs the "request coaching message" RPC. The
// response is validated against the contract and rejected on any mismatch:
// a malformed orchestrator reply is an error, never partial data.
func (c *OrchestratorClient) RequestCoachingMessage(ctx context.Context, req *core.CoachRequest) (*core.CoachResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal coaching request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/coaching/message", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build coaching request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("coaching request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("orchestrator returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out core.CoachResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode coaching response: %w", err)
	}
	if out.Title == "" || out.Body == "" || out.ToneUsed == "" {
		return nil, fmt.Errorf("coaching response missing required fields")
	}
	return &out, nil
}

var _ core.CoachClient = (*OrchestratorClient)(nil)
