package coach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/steadyapp/steady/internal/core"
)

func testRequest() *core.CoachRequest {
	avg := 2.1
	return &core.CoachRequest{
		UserID: "u1",
		LatestCheckin: core.CoachCheckin{
			MoodScore:   2,
			EnergyLevel: "low",
			Note:        "tired",
		},
		Analytics: core.CoachAnalytics{
			AverageMood: &avg,
			Trend:       "declining",
			StreakDays:  3,
		},
		Personality: map[string]float64{"neuroticism": 0.8},
		HistoryRefs: []string{"c1", "c2"},
	}
}

func TestNewOrchestratorClientRequiresCredentials(t *testing.T) {
	if _, err := NewOrchestratorClient("", "key"); err == nil {
		t.Fatal("empty endpoint must be rejected")
	}
	if _, err := NewOrchestratorClient("http://example.com", ""); err == nil {
		t.Fatal("empty credential must be rejected")
	}
	c, err := NewOrchestratorClient("http://example.com/", "key")
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if strings.HasSuffix(c.baseURL, "/") {
		t.Fatalf("base URL must be normalized, got %q", c.baseURL)
	}
}

func TestRequestCoachingMessage(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq core.CoachRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(core.CoachResponse{
			Title:           "A quieter evening",
			Body:            "Low energy after a declining week is a signal, not a failure.",
			SuggestedAction: "Block 20 minutes of downtime tonight",
			ToneUsed:        "supportive",
		})
	}))
	defer srv.Close()

	c, err := NewOrchestratorClient(srv.URL, "secret-key")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	resp, err := c.RequestCoachingMessage(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Fatalf("want bearer auth, got %q", gotAuth)
	}
	if gotPath != "/api/coaching/message" {
		t.Fatalf("wrong path: %q", gotPath)
	}
	if gotReq.UserID != "u1" || gotReq.LatestCheckin.MoodScore != 2 || len(gotReq.HistoryRefs) != 2 {
		t.Fatalf("request body not forwarded: %+v", gotReq)
	}
	if resp.Title != "A quieter evening" || resp.ToneUsed != "supportive" {
		t.Fatalf("response not decoded: %+v", resp)
	}
}

func TestRequestCoachingMessageFailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "pipeline overloaded", http.StatusServiceUnavailable)
			},
		},
		{
			"missing tone",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(core.CoachResponse{Title: "t", Body: "b"})
			},
		},
		{
			"empty object",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{}"))
			},
		},
		{
			"not json",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>gateway</html>"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c, err := NewOrchestratorClient(srv.URL, "key")
			if err != nil {
				t.Fatalf("client: %v", err)
			}
			if _, err := c.RequestCoachingMessage(context.Background(), testRequest()); err == nil {
				t.Fatal("malformed reply must be an error")
			}
		})
	}
}

func TestRequestCoachingMessageHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, err := NewOrchestratorClient(srv.URL, "key")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.RequestCoachingMessage(ctx, testRequest()); err == nil {
		t.Fatal("cancelled context must abort the call")
	}
}
