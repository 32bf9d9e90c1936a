package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/policypulse/policypulse/internal/auth"
	"github.com/policypulse/policypulse/internal/ingest"
	"github.com/policypulse/policypulse/internal/model"
	"github.com/policypulse/policypulse/internal/scoring"
	"github.com/policypulse/policypulse/internal/server"
	"github.com/policypulse/policypulse/internal/service/analysis"
	"github.com/policypulse/policypulse/internal/storage"
	"github.com/policypulse/policypulse/migrations"
)

var (
	testSrv       *httptest.Server
	testcontainer testcontainers.Container
	adminToken    string
	collabToken   string
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "policypulse",
			"POSTGRES_PASSWORD": "policypulse",
			"POSTGRES_DB":       "policypulse",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	var err error
	testcontainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, _ := testcontainer.Host(ctx)
	port, _ := testcontainer.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://policypulse:policypulse@%s:%s/policypulse?sslmode=disable", host, port.Port())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	db, err := storage.New(ctx, dsn, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		os.Exit(1)
	}

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	jwtMgr, err := auth.NewJWTManager("", "", 24*time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create jwt manager: %v\n", err)
		os.Exit(1)
	}

	// Seed credentials directly; provisioning normally goes through the
	// admin endpoint, exercised below.
	seedAPIKey(ctx, db, "admin", "test-admin-key", auth.RoleAdmin)
	seedAPIKey(ctx, db, "ingest-bot", "test-collab-key", auth.RoleCollaborator)

	scorer := scoring.New(nil, nil)
	// Threshold of 30 so single-category bills cross the notify line.
	ingestSvc := ingest.New(db, scorer, logger, 4, 30)
	analysisSvc := analysis.New(db, logger)

	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		IngestSvc:           ingestSvc,
		AnalysisSvc:         analysisSvc,
		Logger:              logger,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        30 * time.Second,
		Version:             "test",
		MaxRequestBodyBytes: 1 * 1024 * 1024,
		MaxIngestBatch:      100,
	})

	testSrv = httptest.NewServer(srv.Handler())

	adminToken = getToken(testSrv.URL, "admin", "test-admin-key")
	collabToken = getToken(testSrv.URL, "ingest-bot", "test-collab-key")

	code := m.Run()

	testSrv.Close()
	db.Close()
	_ = testcontainer.Terminate(context.Background())
	os.Exit(code)
}

func seedAPIKey(ctx context.Context, db *storage.DB, clientID, key, role string) {
	hash, err := auth.HashAPIKey(key)
	if err != nil {
		panic(fmt.Sprintf("seedAPIKey: hash failed: %v", err))
	}
	if _, err := db.CreateAPIKey(ctx, clientID, hash, role); err != nil {
		panic(fmt.Sprintf("seedAPIKey: insert failed: %v", err))
	}
}

func getToken(baseURL, clientID, apiKey string) string {
	body, _ := json.Marshal(model.AuthTokenRequest{ClientID: clientID, APIKey: apiKey})
	resp, err := http.Post(baseURL+"/auth/token", "application/json", bytes.NewReader(body))
	if err != nil {
		panic(fmt.Sprintf("getToken: request failed: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		panic(fmt.Sprintf("getToken: status %d, body: %s", resp.StatusCode, string(data)))
	}
	var result struct {
		Data model.AuthTokenResponse `json:"data"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		panic(fmt.Sprintf("getToken: unmarshal failed: %v, body: %s", err, string(data)))
	}
	if result.Data.Token == "" {
		panic(fmt.Sprintf("getToken: empty token, body: %s", string(data)))
	}
	return result.Data.Token
}

func authedRequest(method, url, token string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return http.DefaultClient.Do(req)
}

func strPtr(s string) *string { return &s }

// billRecord builds a minimal valid record; callers override what matters.
func billRecord(externalID, billNumber, title string) model.BillRecord {
	return model.BillRecord{
		ExternalID: externalID,
		DataSource: model.DataSourceLegiscan,
		GovtType:   model.GovtTypeState,
		GovtSource: "WA",
		BillNumber: billNumber,
		Title:      title,
	}
}

// ingestBills posts a batch and returns the parsed response.
func ingestBills(t *testing.T, token string, bills ...model.BillRecord) model.IngestResponse {
	t.Helper()
	resp, err := authedRequest("POST", testSrv.URL+"/v1/ingest", token,
		model.IngestRequest{SyncType: "test", Bills: bills})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode, "ingest failed: %s", string(data))

	var result struct {
		Data model.IngestResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &result))
	return result.Data
}

func TestHealthEndpoint(t *testing.T) {
	resp, err := http.Get(testSrv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Status  string `json:"status"`
			Version string `json:"version"`
		} `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(data, &result)
	assert.Equal(t, "ok", result.Data.Status)
	assert.Equal(t, "test", result.Data.Version)
}

func TestAuthFlow(t *testing.T) {
	token := getToken(testSrv.URL, "ingest-bot", "test-collab-key")
	assert.NotEmpty(t, token)

	body, _ := json.Marshal(model.AuthTokenRequest{ClientID: "ingest-bot", APIKey: "wrong"})
	resp, err := http.Post(testSrv.URL+"/auth/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Unknown client gets the same answer as a bad key.
	body2, _ := json.Marshal(model.AuthTokenRequest{ClientID: "nobody", APIKey: "anything"})
	resp2, err := http.Post(testSrv.URL+"/auth/token", "application/json", bytes.NewReader(body2))
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestUnauthenticatedAccess(t *testing.T) {
	resp, err := http.Get(testSrv.URL + "/v1/legislation")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIngestIdempotency(t *testing.T) {
	bill := billRecord("idem-1", "HB 1001", "Road naming act")

	first := ingestBills(t, collabToken, bill)
	require.Len(t, first.Results, 1)
	assert.True(t, first.Results[0].Created)
	assert.True(t, first.Results[0].Changed)
	assert.Equal(t, model.SyncStatusCompleted, first.Run.Status)
	assert.Equal(t, 1, first.Run.NewBills)

	// Identical payload: the change hash matches, nothing is rewritten.
	second := ingestBills(t, collabToken, bill)
	require.Len(t, second.Results, 1)
	assert.False(t, second.Results[0].Created)
	assert.False(t, second.Results[0].Changed)
	assert.Equal(t, 0, second.Run.NewBills)
	assert.Equal(t, 0, second.Run.BillsUpdated)

	// Changed title: same identity row is updated in place.
	bill.Title = "Road naming and renumbering act"
	third := ingestBills(t, collabToken, bill)
	require.Len(t, third.Results, 1)
	assert.False(t, third.Results[0].Created)
	assert.True(t, third.Results[0].Changed)
	assert.Equal(t, first.Results[0].LegislationID, third.Results[0].LegislationID)
	assert.Equal(t, 1, third.Run.BillsUpdated)
}

func TestIngestValidation(t *testing.T) {
	resp, err := authedRequest("POST", testSrv.URL+"/v1/ingest", collabToken,
		model.IngestRequest{Bills: nil})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	bad := billRecord("", "HB 1", "No external id")
	resp2, err := authedRequest("POST", testSrv.URL+"/v1/ingest", collabToken,
		model.IngestRequest{Bills: []model.BillRecord{bad}})
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestLegislationDetail(t *testing.T) {
	bill := billRecord("detail-1", "SB 2001", "Hospital and clinic vaccination funding")
	bill.Description = strPtr("Funds public health departments, hospital systems and disease surveillance.")
	bill.Sponsors = []model.SponsorInput{{Name: "Sen. Rivera", Party: strPtr("D")}}
	bill.Texts = []model.TextInput{{
		TextType: strPtr("introduced"),
		Content:  model.TextContent("Section 1. Appropriations for public health."),
	}}

	res := ingestBills(t, collabToken, bill)
	require.Len(t, res.Results, 1)
	id := res.Results[0].LegislationID

	resp, err := authedRequest("GET", testSrv.URL+fmt.Sprintf("/v1/legislation/%d", id), collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data model.LegislationDetail `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "detail-1", result.Data.Legislation.ExternalID)
	assert.Len(t, result.Data.Sponsors, 1)
	require.NotNil(t, result.Data.LatestText)
	assert.Equal(t, 1, result.Data.LatestText.VersionNum)
	require.NotNil(t, result.Data.Priority, "scoring runs on ingest")
	assert.Greater(t, result.Data.Priority.PublicHealthRelevance, 0)
}

func TestLegislationList(t *testing.T) {
	ingestBills(t, collabToken, billRecord("list-1", "HB 3001", "County clerk fee schedule"))

	resp, err := authedRequest("GET", testSrv.URL+"/v1/legislation?limit=5", collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data  []model.Legislation `json:"data"`
		Total int                 `json:"total"`
		Limit int                 `json:"limit"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &result))
	assert.NotEmpty(t, result.Data)
	assert.GreaterOrEqual(t, result.Total, 1)
	assert.Equal(t, 5, result.Limit)
}

func TestSearchEndpoint(t *testing.T) {
	bill := billRecord("search-1", "HB 4001", "Stormwater infrastructure modernization")
	bill.Description = strPtr("Grants for municipal stormwater and drainage upgrades.")
	ingestBills(t, collabToken, bill)

	resp, err := authedRequest("GET", testSrv.URL+"/v1/legislation/search?q=stormwater", collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []model.SearchResult `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &result))
	require.NotEmpty(t, result.Data)
	assert.Equal(t, "search-1", result.Data[0].ExternalID)
	assert.Greater(t, result.Data[0].Rank, float32(0))

	// Missing query parameter.
	resp2, err := authedRequest("GET", testSrv.URL+"/v1/legislation/search", collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestAnalysisVersioning(t *testing.T) {
	res := ingestBills(t, collabToken, billRecord("analysis-1", "SB 5001", "Opioid treatment access"))
	id := res.Results[0].LegislationID
	base := fmt.Sprintf("%s/v1/legislation/%d/analysis", testSrv.URL, id)

	post := func(summary string) model.CreateAnalysisResponse {
		resp, err := authedRequest("POST", base, collabToken,
			model.AnalysisPayload{Summary: summary, KeyPoints: []string{"expands access"}})
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(resp.Body)
		require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", string(data))
		var result struct {
			Data model.CreateAnalysisResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &result))
		return result.Data
	}

	v1 := post("Expands opioid treatment programs statewide.")
	assert.Equal(t, 1, v1.AnalysisVersion)

	v2 := post("Expands opioid treatment programs statewide, with county match funding.")
	assert.Equal(t, 2, v2.AnalysisVersion)

	// Latest is the highest version, with a change set against v1.
	resp, err := authedRequest("GET", base+"/latest", collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var latest struct {
		Data model.Analysis `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &latest))
	assert.Equal(t, 2, latest.Data.AnalysisVersion)
	require.NotNil(t, latest.Data.PreviousVersionID)
	assert.Equal(t, v1.ID, *latest.Data.PreviousVersionID)
	assert.NotEmpty(t, latest.Data.ChangesFromPrevious)

	// Full history.
	resp2, err := authedRequest("GET", base, collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	var history struct {
		Data []model.Analysis `json:"data"`
	}
	data2, _ := io.ReadAll(resp2.Body)
	require.NoError(t, json.Unmarshal(data2, &history))
	assert.Len(t, history.Data, 2)
}

func TestManualReviewPinsPriority(t *testing.T) {
	bill := billRecord("review-1", "HB 6001", "Health district sanitation standards")
	bill.Description = strPtr("Sets sanitation and water quality rules for health districts.")
	res := ingestBills(t, collabToken, bill)
	id := res.Results[0].LegislationID

	// Manual review pins the row.
	resp, err := authedRequest("PUT", testSrv.URL+fmt.Sprintf("/v1/legislation/%d/priority/review", id), collabToken,
		model.ManualReview{ManualPriority: 95, ReviewerNotes: strPtr("board watch list")})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reviewed struct {
		Data model.Priority `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &reviewed))
	assert.True(t, reviewed.Data.ManuallyReviewed)
	assert.Equal(t, 95, reviewed.Data.ManualPriority)
	require.NotNil(t, reviewed.Data.ReviewDate)

	// Re-ingestion with changed content rescales auto fields elsewhere but
	// must not clobber the reviewed row.
	bill.Title = "Health district sanitation and inspection standards"
	ingestBills(t, collabToken, bill)

	resp2, err := authedRequest("GET", testSrv.URL+fmt.Sprintf("/v1/legislation/%d/priority", id), collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	var after struct {
		Data model.Priority `json:"data"`
	}
	data2, _ := io.ReadAll(resp2.Body)
	require.NoError(t, json.Unmarshal(data2, &after))
	assert.True(t, after.Data.ManuallyReviewed)
	assert.Equal(t, 95, after.Data.ManualPriority)
}

func TestNotificationLatch(t *testing.T) {
	bill := billRecord("notify-1", "SB 7001", "Pandemic preparedness and vaccination")
	bill.Description = strPtr("Hospital surge capacity, immunization outreach, epidemic response and mental health services.")
	res := ingestBills(t, collabToken, bill)
	id := res.Results[0].LegislationID

	// The bill scores past the notify threshold, so it shows up pending.
	pending := listPending(t)
	require.Contains(t, pending, id)

	// Mark sent: the latch closes and the date is stamped.
	resp, err := authedRequest("POST", testSrv.URL+fmt.Sprintf("/v1/legislation/%d/notified", id), collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var marked struct {
		Data model.Priority `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &marked))
	assert.True(t, marked.Data.NotificationSent)
	require.NotNil(t, marked.Data.NotificationDate)
	firstDate := *marked.Data.NotificationDate

	assert.NotContains(t, listPending(t), id)

	// Re-ingesting updated content never reopens the latch.
	bill.Description = strPtr("Hospital surge capacity, immunization outreach, epidemic response, opioid and mental health services.")
	ingestBills(t, collabToken, bill)

	resp2, err := authedRequest("GET", testSrv.URL+fmt.Sprintf("/v1/legislation/%d/priority", id), collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	var after struct {
		Data model.Priority `json:"data"`
	}
	data2, _ := io.ReadAll(resp2.Body)
	require.NoError(t, json.Unmarshal(data2, &after))
	assert.True(t, after.Data.NotificationSent)
	require.NotNil(t, after.Data.NotificationDate)
	assert.Equal(t, firstDate.Unix(), after.Data.NotificationDate.Unix())
}

func TestMarkNotifiedRecordsAlertHistory(t *testing.T) {
	bill := billRecord("notify-2", "SB 7002", "Epidemic response and hospital vaccination funding")
	res := ingestBills(t, collabToken, bill)
	id := res.Results[0].LegislationID

	userResp, err := authedRequest("POST", testSrv.URL+"/v1/users", collabToken,
		map[string]string{"email": "alerts@example.org"})
	require.NoError(t, err)
	defer func() { _ = userResp.Body.Close() }()
	var user struct {
		Data model.User `json:"data"`
	}
	userData, _ := io.ReadAll(userResp.Body)
	require.NoError(t, json.Unmarshal(userData, &user))

	resp, err := authedRequest("POST", testSrv.URL+fmt.Sprintf("/v1/legislation/%d/notified", id),
		collabToken, map[string]any{
			"user_id":         user.Data.ID,
			"alert_type":      "high_priority",
			"delivery_status": "sent",
		})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	histResp, err := authedRequest("GET", testSrv.URL+fmt.Sprintf("/v1/users/%d/alert-history", user.Data.ID), collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = histResp.Body.Close() }()
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	var hist struct {
		Data []model.AlertRecord `json:"data"`
	}
	histData, _ := io.ReadAll(histResp.Body)
	require.NoError(t, json.Unmarshal(histData, &hist))
	require.Len(t, hist.Data, 1)
	assert.Equal(t, id, hist.Data[0].LegislationID)
	assert.Equal(t, model.AlertTypeHighPriority, hist.Data[0].AlertType)
	require.NotNil(t, hist.Data[0].DeliveryStatus)
	assert.Equal(t, "sent", *hist.Data[0].DeliveryStatus)
}

func listPending(t *testing.T) []int64 {
	t.Helper()
	resp, err := authedRequest("GET", testSrv.URL+"/v1/notifications/pending", collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Data []model.Priority `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &result))
	ids := make([]int64, 0, len(result.Data))
	for _, p := range result.Data {
		ids = append(ids, p.LegislationID)
	}
	return ids
}

func TestSyncHistory(t *testing.T) {
	ingestBills(t, collabToken, billRecord("sync-1", "HB 8001", "Ferry terminal improvements"))

	resp, err := authedRequest("GET", testSrv.URL+"/v1/sync/history", collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []model.SyncRun `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &result))
	require.NotEmpty(t, result.Data)
	assert.True(t, result.Data[0].Status.Terminal())
	assert.NotNil(t, result.Data[0].LastSuccessfulSync)
}

func TestUserPreferencesRoundtrip(t *testing.T) {
	resp, err := authedRequest("POST", testSrv.URL+"/v1/users", collabToken,
		map[string]string{"email": "analyst@example.com"})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user struct {
		Data model.User `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &user))
	userID := user.Data.ID

	// Same email resolves to the same row.
	resp2, err := authedRequest("POST", testSrv.URL+"/v1/users", collabToken,
		map[string]string{"email": "analyst@example.com"})
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	var again struct {
		Data model.User `json:"data"`
	}
	data2, _ := io.ReadAll(resp2.Body)
	require.NoError(t, json.Unmarshal(data2, &again))
	assert.Equal(t, userID, again.Data.ID)

	prefsURL := testSrv.URL + fmt.Sprintf("/v1/users/%d/preferences", userID)
	resp3, err := authedRequest("PUT", prefsURL, collabToken, model.SavePreferencesRequest{
		Keywords: []string{"water quality"},
		Regions:  []string{"king county"},
	})
	require.NoError(t, err)
	defer func() { _ = resp3.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)

	resp4, err := authedRequest("GET", prefsURL, collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp4.Body.Close() }()
	var prefs struct {
		Data model.UserPreferences `json:"data"`
	}
	data4, _ := io.ReadAll(resp4.Body)
	require.NoError(t, json.Unmarshal(data4, &prefs))
	assert.Equal(t, []string{"water quality"}, prefs.Data.Keywords)
	assert.Equal(t, 25, prefs.Data.ItemsPerPage, "defaults applied on save")
}

func TestSearchHistory(t *testing.T) {
	resp, err := authedRequest("POST", testSrv.URL+"/v1/users", collabToken,
		map[string]string{"email": "searcher@example.com"})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var user struct {
		Data model.User `json:"data"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &user))

	histURL := testSrv.URL + fmt.Sprintf("/v1/users/%d/search-history", user.Data.ID)
	resp2, err := authedRequest("POST", histURL, collabToken,
		model.AddSearchHistoryRequest{Query: "stormwater", Filters: map[string]any{"govt_type": "state"}})
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusCreated, resp2.StatusCode)

	resp3, err := authedRequest("GET", histURL, collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp3.Body.Close() }()
	var hist struct {
		Data []model.SearchRecord `json:"data"`
	}
	data3, _ := io.ReadAll(resp3.Body)
	require.NoError(t, json.Unmarshal(data3, &hist))
	require.NotEmpty(t, hist.Data)
	require.NotNil(t, hist.Data[0].Query)
	assert.Equal(t, "stormwater", *hist.Data[0].Query)
}

func TestAdminOnlyEndpoints(t *testing.T) {
	res := ingestBills(t, collabToken, billRecord("delete-1", "HB 9001", "Repealed pilot program"))
	id := res.Results[0].LegislationID
	url := testSrv.URL + fmt.Sprintf("/v1/legislation/%d", id)

	// Collaborators cannot delete.
	resp, err := authedRequest("DELETE", url, collabToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin deletion returns per-table counts.
	resp2, err := authedRequest("DELETE", url, adminToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	var counts struct {
		Data model.DeleteCounts `json:"data"`
	}
	data, _ := io.ReadAll(resp2.Body)
	require.NoError(t, json.Unmarshal(data, &counts))
	assert.Equal(t, int64(1), counts.Data.Legislation)

	// Gone means gone.
	resp3, err := authedRequest("DELETE", url, adminToken, nil)
	require.NoError(t, err)
	defer func() { _ = resp3.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestAPIKeyProvisioning(t *testing.T) {
	// Collaborators cannot mint credentials.
	resp, err := authedRequest("POST", testSrv.URL+"/v1/admin/api-keys", collabToken,
		map[string]string{"client_id": "rogue", "api_key": "rogue-key"})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin provisions a new collaborator, who can then authenticate.
	resp2, err := authedRequest("POST", testSrv.URL+"/v1/admin/api-keys", adminToken,
		map[string]string{"client_id": "analysis-bot", "api_key": "analysis-secret"})
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusCreated, resp2.StatusCode)

	token := getToken(testSrv.URL, "analysis-bot", "analysis-secret")
	assert.NotEmpty(t, token)

	// Bogus role is rejected.
	resp3, err := authedRequest("POST", testSrv.URL+"/v1/admin/api-keys", adminToken,
		map[string]string{"client_id": "x", "api_key": "y", "role": "superuser"})
	require.NoError(t, err)
	defer func() { _ = resp3.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}
