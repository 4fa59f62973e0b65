package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/steadyapp/steady/internal/api/handlers"
	"github.com/steadyapp/steady/internal/app"
	"github.com/steadyapp/steady/internal/config"
	"github.com/steadyapp/steady/internal/core/coretest"
	"github.com/steadyapp/steady/internal/intervention"
	"github.com/steadyapp/steady/internal/models"
	"github.com/steadyapp/steady/internal/services"
)

const testSecret = "test-secret"

func newTestRouter(store *coretest.FakeDB) http.Handler {
	cfg := &config.Config{JWTSecret: testSecret, Port: "8080"}
	composer := intervention.NewComposer(store, nil, nil)
	worker := intervention.NewWorker(composer, 16)
	svc := services.NewCheckinService(store, composer, worker, services.NewEngagementService(store))
	return app.NewRouter(cfg,
		handlers.NewAuthHandler(store, testSecret),
		handlers.NewCheckinHandler(svc),
		handlers.NewInterventionHandler(store),
	)
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := newTestRouter(coretest.NewFakeDB())

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/checkins"},
		{http.MethodGet, "/api/checkins"},
		{http.MethodGet, "/api/interventions/latest"},
		{http.MethodGet, "/api/interventions/pending-feedback"},
		{http.MethodPost, "/api/interventions/abc/viewed"},
		{http.MethodPost, "/api/interventions/abc/feedback"},
	}
	for _, rt := range routes {
		rec := doJSON(t, h, rt.method, rt.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: want 401, got %d", rt.method, rt.path, rec.Code)
		}
	}
}

func TestSignupStoreFailureIsNotAConflict(t *testing.T) {
	store := coretest.NewFakeDB()
	store.CreateUserErr = fmt.Errorf("connection refused")
	h := newTestRouter(store)

	creds := map[string]string{"first_name": "Ada", "email": "ada@example.com", "password": "hunter22"}
	rec := doJSON(t, h, http.MethodPost, "/api/signup", "", creds)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("store outage on signup: want 500, got %d: %s", rec.Code, rec.Body)
	}
}

func TestSignupAndLogin(t *testing.T) {
	h := newTestRouter(coretest.NewFakeDB())
	creds := map[string]string{"first_name": "Ada", "email": "ada@example.com", "password": "hunter22"}

	rec := doJSON(t, h, http.MethodPost, "/api/signup", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup: want 200, got %d: %s", rec.Code, rec.Body)
	}
	if decodeBody(t, rec)["token"] == "" {
		t.Fatal("signup must return a token")
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/signup", "", creds); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: want 409, got %d", rec.Code)
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/login", "", creds); rec.Code != http.StatusOK {
		t.Fatalf("login: want 200, got %d", rec.Code)
	}

	bad := map[string]string{"email": "ada@example.com", "password": "wrong"}
	if rec := doJSON(t, h, http.MethodPost, "/api/login", "", bad); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: want 401, got %d", rec.Code)
	}

	unknown := map[string]string{"email": "nobody@example.com", "password": "hunter22"}
	if rec := doJSON(t, h, http.MethodPost, "/api/login", "", unknown); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: want 401, got %d", rec.Code)
	}
}

func TestCreateCheckinTriggersIntervention(t *testing.T) {
	store := coretest.NewFakeDB()
	h := newTestRouter(store)
	token := tokenFor(t, "u1")

	rec := doJSON(t, h, http.MethodPost, "/api/checkins", token, map[string]any{
		"moodScore":   1,
		"energyLevel": "low",
		"freeText":    "rough day",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body)
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("want success=true, got %v", body)
	}
	an, ok := body["analytics"].(map[string]any)
	if !ok {
		t.Fatalf("missing analytics block: %v", body)
	}
	if an["intervention_triggered"] != true {
		t.Fatalf("mood 1 must trigger: %v", an)
	}
	if an["template_type"] != "compassion" {
		t.Fatalf("want compassion template, got %v", an["template_type"])
	}
	if len(store.Interventions) != 1 {
		t.Fatalf("want one intervention stored, got %d", len(store.Interventions))
	}
}

func TestCreateCheckinValidation(t *testing.T) {
	h := newTestRouter(coretest.NewFakeDB())
	token := tokenFor(t, "u1")

	rec := doJSON(t, h, http.MethodPost, "/api/checkins", token, map[string]any{
		"moodScore":   0,
		"energyLevel": "low",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["error"]; msg != "mood score must be between 1 and 5" {
		t.Fatalf("unexpected error message: %v", msg)
	}
}

func TestListCheckinsPagination(t *testing.T) {
	store := coretest.NewFakeDB()
	now := time.Now()
	for i := 0; i < 12; i++ {
		store.Checkins = append(store.Checkins, models.Checkin{
			ID:          uuid.NewString(),
			UserID:      "u1",
			MoodScore:   3,
			EnergyLevel: models.EnergyMid,
			CreatedAt:   now.Add(-time.Duration(i) * time.Hour),
		})
	}
	h := newTestRouter(store)
	token := tokenFor(t, "u1")

	rec := doJSON(t, h, http.MethodGet, "/api/checkins", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	page := body["pagination"].(map[string]any)
	if page["limit"].(float64) != 10 || page["total"].(float64) != 12 || page["has_more"] != true {
		t.Fatalf("default page wrong: %v", page)
	}
	if len(body["data"].([]any)) != 10 {
		t.Fatalf("want 10 rows, got %d", len(body["data"].([]any)))
	}

	// Out-of-range limits clamp instead of erroring.
	rec = doJSON(t, h, http.MethodGet, "/api/checkins?limit=999&offset=10", token, nil)
	page = decodeBody(t, rec)["pagination"].(map[string]any)
	if page["limit"].(float64) != 50 || page["has_more"] != false {
		t.Fatalf("clamped page wrong: %v", page)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/checkins?include_analytics=true", token, nil)
	body = decodeBody(t, rec)
	an, ok := body["analytics"].(map[string]any)
	if !ok {
		t.Fatalf("want analytics block: %v", body)
	}
	if an["mood_average"].(float64) != 3 {
		t.Fatalf("want page average 3, got %v", an["mood_average"])
	}
}

func TestListCheckinsDateFilter(t *testing.T) {
	store := coretest.NewFakeDB()
	old := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, ts := range []time.Time{old, recent} {
		store.Checkins = append(store.Checkins, models.Checkin{
			ID:          fmt.Sprintf("c%d", i),
			UserID:      "u1",
			MoodScore:   3,
			EnergyLevel: models.EnergyMid,
			CreatedAt:   ts,
		})
	}
	h := newTestRouter(store)
	token := tokenFor(t, "u1")

	rec := doJSON(t, h, http.MethodGet, "/api/checkins?date_from=2026-06-01", token, nil)
	body := decodeBody(t, rec)
	data := body["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("want 1 filtered row, got %d", len(data))
	}
	if data[0].(map[string]any)["id"] != "c1" {
		t.Fatalf("wrong row survived the filter: %v", data[0])
	}
}

func TestInterventionEndpoints(t *testing.T) {
	store := coretest.NewFakeDB()
	iv := &models.Intervention{
		ID:           uuid.NewString(),
		UserID:       "u1",
		CheckinID:    uuid.NewString(),
		TemplateType: models.TemplateCompassion,
		MessagePayload: models.MessagePayload{
			Title: "Be kind to yourself", Body: "Rough days pass.",
		},
		Fallback:       true,
		AnalysisStatus: models.AnalysisReady,
		CreatedAt:      time.Now(),
	}
	store.Interventions[iv.ID] = iv
	h := newTestRouter(store)
	token := tokenFor(t, "u1")

	rec := doJSON(t, h, http.MethodGet, "/api/interventions/latest", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("latest: want 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["id"] != iv.ID {
		t.Fatalf("latest returned wrong row: %v", data)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/interventions/"+iv.ID+"/viewed", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("viewed: want 200, got %d: %s", rec.Code, rec.Body)
	}
	if !store.Interventions[iv.ID].Viewed {
		t.Fatal("viewed flag not persisted")
	}

	rec = doJSON(t, h, http.MethodPost, "/api/interventions/"+uuid.NewString()+"/viewed", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: want 404, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/interventions/"+iv.ID+"/feedback", token, map[string]int{"score": 9})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("score 9: want 400, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/interventions/"+iv.ID+"/feedback", token, map[string]int{"score": 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("feedback: want 200, got %d: %s", rec.Code, rec.Body)
	}
	if fs := store.Interventions[iv.ID].FeedbackScore; fs == nil || *fs != 4 {
		t.Fatalf("feedback score not persisted: %v", fs)
	}

	// Another user's token must not see or touch these rows.
	other := tokenFor(t, "u2")
	rec = doJSON(t, h, http.MethodGet, "/api/interventions/latest", other, nil)
	if body := decodeBody(t, rec); body["data"] != nil {
		t.Fatalf("latest must be null for a user with no interventions: %v", body)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/interventions/"+iv.ID+"/viewed", other, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user viewed: want 404, got %d", rec.Code)
	}
}

func TestPendingFeedback(t *testing.T) {
	store := coretest.NewFakeDB()
	h := newTestRouter(store)
	token := tokenFor(t, "u1")

	rec := doJSON(t, h, http.MethodGet, "/api/interventions/pending-feedback", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["data"] != nil || body["count"].(float64) != 0 {
		t.Fatalf("empty store must report null/0, got %v", body)
	}

	iv := &models.Intervention{
		ID:             uuid.NewString(),
		UserID:         "u1",
		TemplateType:   models.TemplateReflection,
		MessagePayload: models.MessagePayload{Title: "t", Body: "b"},
		Viewed:         true,
		AnalysisStatus: models.AnalysisReady,
		CreatedAt:      time.Now(),
	}
	store.Interventions[iv.ID] = iv

	rec = doJSON(t, h, http.MethodGet, "/api/interventions/pending-feedback", token, nil)
	body = decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Fatalf("viewed row without feedback must count, got %v", body)
	}
}
