package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/derby-tracker/internal/config"
	"github.com/mauv0809/derby-tracker/internal/database"
	"github.com/mauv0809/derby-tracker/internal/ledger"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/mauv0809/derby-tracker/internal/live"
	"github.com/mauv0809/derby-tracker/internal/metrics"
	"github.com/mauv0809/derby-tracker/internal/notifier"
	"github.com/mauv0809/derby-tracker/internal/pubsub"
	"github.com/mauv0809/derby-tracker/internal/roster"
	"github.com/mauv0809/derby-tracker/internal/storage"
	"github.com/mauv0809/derby-tracker/internal/summary"
	"github.com/mauv0809/derby-tracker/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type testServer struct {
	*Server
	store    league.Store
	notifier *notifier.Mock
	pubsub   *pubsub.MockPubSubClient
	uploader *storage.MockUploader
}

// setupTestServer initializes a new server with a test database and mock clients.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "../../migrations")
	require.NoError(t, err)
	t.Cleanup(teardown)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC))
	store := league.New(db, clock)
	resolver := roster.NewResolver(store)

	reg := prometheus.NewRegistry()
	metricsSvc := metrics.NewService(reg)
	metricsHandler := metrics.NewMetricsHandler(reg)

	hub := live.NewHub([]string{"*"})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	ps := pubsub.NewMock()
	notif := notifier.NewMock()
	uploader := storage.NewMock()
	registry := tracker.NewRegistry(store, ledger.NewStore(db, clock), resolver, hub, ps, metricsSvc, tracker.Options{Clock: clock})
	t.Cleanup(registry.CloseAll)

	cfg := config.Config{CORSOrigins: []string{"*"}}
	server := NewServer(store, resolver, registry, hub, uploader, notif, ps, metricsHandler, cfg)
	return &testServer{Server: server, store: store, notifier: notif, pubsub: ps, uploader: uploader}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// seedBout creates two teams with one jammer and one blocker each, and a bout between them.
func seedBout(t *testing.T, ts *testServer) (boutID string, home, away []string) {
	t.Helper()
	ctx := context.Background()

	homeTeam, err := ts.store.CreateTeam(ctx, league.TeamInput{Name: "Rollin' Thunder"})
	require.NoError(t, err)
	awayTeam, err := ts.store.CreateTeam(ctx, league.TeamInput{Name: "Derby Dolls"})
	require.NoError(t, err)

	for i, team := range []*league.Team{homeTeam, awayTeam} {
		for j, pos := range []league.Position{league.PositionJammer, league.PositionBlocker} {
			p, err := ts.store.CreatePlayer(ctx, league.PlayerInput{
				DerbyName:       fmt.Sprintf("Skater %d-%d", i, j),
				PreferredNumber: fmt.Sprintf("%d%d", i, j),
				Teams:           []league.AssignmentInput{{TeamID: team.ID, Position: pos}},
			})
			require.NoError(t, err)
			if i == 0 {
				home = append(home, p.ID)
			} else {
				away = append(away, p.ID)
			}
		}
	}

	bout, err := ts.store.CreateBout(ctx, league.BoutInput{
		HomeTeamID: homeTeam.ID,
		AwayTeamID: awayTeam.ID,
		BoutDate:   time.Date(2025, 3, 8, 18, 0, 0, 0, time.UTC).Unix(),
		Venue:      "Roller Dome",
	})
	require.NoError(t, err)
	return bout.ID, home, away
}

func TestHealthCheckHandler(t *testing.T) {
	ts := setupTestServer(t)
	rr := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK!", rr.Body.String())
}

func TestConfigErrorHandler(t *testing.T) {
	handler := NewConfigErrorHandler(&config.MissingConfigError{
		Missing: []string{config.EnvStoreKey},
		Set:     []string{config.EnvStoreURL},
	})

	for _, path := range []string{"/health", "/api/teams", "/api/bouts/b1/live"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)

		body := decode[map[string]any](t, rr)
		assert.Equal(t, "configuration_error", body["error"])
		assert.Equal(t, []any{config.EnvStoreKey}, body["missing"])
		assert.Contains(t, body["remediation"], config.EnvStoreKey)
	}
}

func TestTeamHandlers(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodPost, "/api/teams", map[string]string{"name": "Rollin' Thunder"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	team := decode[league.Team](t, rr)
	assert.NotEmpty(t, team.ID)

	rr = ts.do(t, http.MethodPost, "/api/teams", map[string]string{"name": "  "})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "name", body["field"])

	rr = ts.do(t, http.MethodPost, "/api/teams", `{"name": "x", "colour": "red"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "unknown keys are rejected")

	rr = ts.do(t, http.MethodPut, "/api/teams/"+team.ID, map[string]string{"name": "Thunder"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Thunder", decode[league.Team](t, rr).Name)

	rr = ts.do(t, http.MethodGet, "/api/teams", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]league.Team](t, rr), 1)

	rr = ts.do(t, http.MethodDelete, "/api/teams/"+team.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/teams/"+team.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPlayerAndBoutHandlers(t *testing.T) {
	ts := setupTestServer(t)
	boutID, home, _ := seedBout(t, ts)

	rr := ts.do(t, http.MethodGet, "/api/players", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]league.PlayerWithTeams](t, rr), 4)

	rr = ts.do(t, http.MethodPost, "/api/players", map[string]any{"derby_name": "No Team", "preferred_number": "9", "teams": []any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/bouts/"+boutID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	bout := decode[league.BoutWithTeams](t, rr)
	assert.Equal(t, "Rollin' Thunder", bout.HomeTeam.Name)
	assert.Equal(t, league.BoutScheduled, bout.Status)

	rr = ts.do(t, http.MethodGet, "/api/teams/"+bout.HomeTeamID+"/roster", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	players := decode[[]roster.Player](t, rr)
	require.Len(t, players, 2)
	assert.ElementsMatch(t, home, []string{players[0].ID, players[1].ID})

	rr = ts.do(t, http.MethodPost, "/api/bouts", map[string]any{
		"home_team_id": bout.HomeTeamID, "away_team_id": bout.HomeTeamID, "bout_date": 1, "venue": "Rink",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "a team cannot play itself")

	rr = ts.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	dashboard := decode[league.Dashboard](t, rr)
	assert.Equal(t, 4, dashboard.Totals.Players)
	assert.Equal(t, 1, dashboard.Totals.Bouts)
}

func TestLiveTracking(t *testing.T) {
	ts := setupTestServer(t)
	boutID, home, away := seedBout(t, ts)
	base := "/api/bouts/" + boutID + "/live"

	rr := ts.do(t, http.MethodPost, base+"/jam/start", jamStartRequest{Home: home[:1], Away: away[:1]})
	assert.Equal(t, http.StatusNotFound, rr.Code, "the session must be opened first")

	rr = ts.do(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	snap := decode[liveResponse](t, rr).Snapshot
	assert.Equal(t, tracker.PhaseSelectingLineup, snap.Phase)
	assert.Len(t, snap.Lines, 4)

	rr = ts.do(t, http.MethodPost, base+"/lineup/cancel", nil)
	assert.Equal(t, http.StatusConflict, rr.Code, "there is no jam before the first")

	rr = ts.do(t, http.MethodPost, base+"/jam/start", jamStartRequest{Home: home[:1]})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "both sides need a skater")

	rr = ts.do(t, http.MethodPost, base+"/jam/start", jamStartRequest{Home: home[:1], Away: away[:1]})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, tracker.PhaseJamActive, decode[liveResponse](t, rr).Snapshot.Phase)

	for i := 0; i < 2; i++ {
		rr = ts.do(t, http.MethodPost, base+"/stats", adjustRequest{PlayerID: home[0], Field: "points_scored", Delta: 4})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	rr = ts.do(t, http.MethodPost, base+"/stats", adjustRequest{PlayerID: away[1], Field: "penalties", Delta: -1})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[liveResponse](t, rr).Snapshot.Lines[away[1]].Penalties)

	rr = ts.do(t, http.MethodPost, base+"/stats", adjustRequest{PlayerID: home[0], Field: "goals", Delta: 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodPost, base+"/stats/lead-jammer", leadJammerRequest{PlayerID: home[0]})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[liveResponse](t, rr).Snapshot.Lines[home[0]].LeadJammer)

	rr = ts.do(t, http.MethodPost, base+"/jam/end", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	snap = decode[liveResponse](t, rr).Snapshot
	assert.Equal(t, 2, snap.Jam)
	assert.Equal(t, 8, snap.HomeScore)
	assert.Equal(t, tracker.PhaseSelectingLineup, snap.Phase)

	rr = ts.do(t, http.MethodGet, "/api/bouts/"+boutID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	bout := decode[league.BoutWithTeams](t, rr)
	require.NotNil(t, bout.HomeScore)
	assert.Equal(t, 8, *bout.HomeScore, "the folded score is persisted")
	assert.Equal(t, league.BoutInProgress, bout.Status)

	rr = ts.do(t, http.MethodPost, base+"/lineup/cancel", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, tracker.PhaseBetweenJams, decode[liveResponse](t, rr).Snapshot.Phase)

	rr = ts.do(t, http.MethodPost, base+"/end", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, tracker.PhaseBoutComplete, decode[liveResponse](t, rr).Snapshot.Phase)

	sent := ts.pubsub.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, pubsub.EventBoutCompleted, sent[0].Topic)

	rr = ts.do(t, http.MethodGet, base+"/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	result := decode[summary.Summary](t, rr)
	assert.Equal(t, summary.OutcomeHomeWin, result.Outcome)

	rr = ts.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/bouts/"+boutID+"/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stored := decode[summary.Summary](t, rr)
	assert.Equal(t, 8, stored.Home.Score)
	assert.Equal(t, league.BoutCompleted, stored.Status)
	for _, p := range stored.Home.Players {
		if p.PlayerID == home[0] {
			assert.Equal(t, 8, p.PointsScored)
			assert.Equal(t, 1, p.JamsPlayed)
		}
	}
}

func TestBoutCompletedPushHandler(t *testing.T) {
	ts := setupTestServer(t)

	result := summary.Summary{
		BoutID:  "b1",
		Home:    summary.Side{TeamName: "Rollin' Thunder", Score: 120},
		Away:    summary.Side{TeamName: "Derby Dolls", Score: 98},
		Outcome: summary.OutcomeHomeWin,
	}
	data, err := msgpack.Marshal(result)
	require.NoError(t, err)
	envelope := fmt.Sprintf(`{"subscription":"s","message":{"messageId":"1","data":%q}}`, base64.StdEncoding.EncodeToString(data))

	rr := ts.do(t, http.MethodPost, "/pubsub/bout-completed?dry_run=true", envelope)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, ts.notifier.SendBoutResultCalls, 1)
	assert.True(t, ts.notifier.SendBoutResultCalls[0].DryRun)
	assert.Equal(t, 120, ts.notifier.SendBoutResultCalls[0].Result.Home.Score)

	rr = ts.do(t, http.MethodPost, "/pubsub/bout-completed", `{"message":{"data":"not base64!"}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func logoRequest(t *testing.T, path, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="logo"; filename="logo"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadTeamLogoHandler(t *testing.T) {
	ts := setupTestServer(t)
	team, err := ts.store.CreateTeam(context.Background(), league.TeamInput{Name: "Rollin' Thunder"})
	require.NoError(t, err)
	path := "/api/teams/" + team.ID + "/logo"

	png := []byte("\x89PNG\r\n\x1a\n0000")
	rr := httptest.NewRecorder()
	ts.ServeHTTP(rr, logoRequest(t, path, "application/octet-stream", png))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, ts.uploader.UploadCalls, 1)
	assert.Equal(t, "teams/"+team.ID+"/logo.png", ts.uploader.UploadCalls[0].Key)
	assert.Equal(t, "image/png", ts.uploader.UploadCalls[0].ContentType)
	assert.Equal(t, png, ts.uploader.UploadCalls[0].Body, "sniffed bytes are uploaded too")

	got, err := ts.store.GetTeam(context.Background(), team.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LogoURL)
	assert.True(t, strings.HasSuffix(*got.LogoURL, "/teams/"+team.ID+"/logo.png"))

	rr = httptest.NewRecorder()
	ts.ServeHTTP(rr, logoRequest(t, path, "text/plain", []byte("hello")))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	ts.Uploader = storage.NewDisabled()
	rr = httptest.NewRecorder()
	ts.ServeHTTP(rr, logoRequest(t, path, "image/png", png))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestWatchBoutHandler(t *testing.T) {
	ts := setupTestServer(t)
	boutID, home, _ := seedBout(t, ts)

	srv := httptest.NewServer(ts)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/bouts/" + boutID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	read := func() tracker.Snapshot {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg struct {
			Type    string           `json:"type"`
			Payload tracker.Snapshot `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, tracker.MessageSnapshot, msg.Type)
		return msg.Payload
	}

	initial := read()
	assert.Equal(t, boutID, initial.BoutID)
	assert.Equal(t, 1, initial.Jam)

	require.Eventually(t, func() bool { return ts.Hub.RoomSize(boutID) == 1 }, time.Second, 5*time.Millisecond)

	rr := ts.do(t, http.MethodPost, "/api/bouts/"+boutID+"/live/stats", adjustRequest{PlayerID: home[1], Field: "blocks", Delta: 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	update := read()
	assert.Equal(t, 2, update.Lines[home[1]].Blocks)

	rr = ts.do(t, http.MethodGet, "/ws/bouts/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateBoutDuringLiveSession(t *testing.T) {
	ts := setupTestServer(t)
	boutID, home, away := seedBout(t, ts)
	base := "/api/bouts/" + boutID + "/live"

	rr := ts.do(t, http.MethodGet, "/api/bouts/"+boutID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	bout := decode[league.BoutWithTeams](t, rr)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base, nil).Code)

	edit := func(status league.BoutStatus) {
		t.Helper()
		score := 10
		rr := ts.do(t, http.MethodPut, "/api/bouts/"+boutID, league.BoutInput{
			HomeTeamID: bout.HomeTeamID,
			AwayTeamID: bout.AwayTeamID,
			BoutDate:   bout.BoutDate,
			Venue:      bout.Venue,
			HomeScore:  &score,
			AwayScore:  &score,
			Status:     status,
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	edit(league.BoutInProgress)

	rr = ts.do(t, http.MethodPost, base+"/jam/start", jamStartRequest{Home: home[:1], Away: away[:1]})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.do(t, http.MethodPost, base+"/stats", adjustRequest{PlayerID: home[0], Field: "points_scored", Delta: 4})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.do(t, http.MethodPost, base+"/jam/end", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodGet, "/api/bouts/"+boutID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stored := decode[league.BoutWithTeams](t, rr)
	require.NotNil(t, stored.HomeScore)
	require.NotNil(t, stored.AwayScore)
	assert.Equal(t, 14, *stored.HomeScore, "the jam is added to the edited score")
	assert.Equal(t, 10, *stored.AwayScore)

	edit(league.BoutCompleted)
	rr = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, tracker.PhaseBoutComplete, decode[liveResponse](t, rr).Snapshot.Phase)

	rr = ts.do(t, http.MethodPost, base+"/jam/start", jamStartRequest{Home: home[:1], Away: away[:1]})
	assert.Equal(t, http.StatusConflict, rr.Code)

	edit(league.BoutCancelled)
	rr = ts.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "a cancelled bout has no live session")
}

func TestAdjustStatHandler_RejectsOutOfRangeDelta(t *testing.T) {
	ts := setupTestServer(t)
	boutID, home, _ := seedBout(t, ts)
	base := "/api/bouts/" + boutID + "/live"
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base, nil).Code)

	for _, delta := range []int{maxStatDelta + 1, -maxStatDelta - 1, math.MaxInt} {
		rr := ts.do(t, http.MethodPost, base+"/stats", adjustRequest{PlayerID: home[0], Field: "points_scored", Delta: delta})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code, "delta %d", delta)
		assert.Equal(t, "delta", decode[map[string]string](t, rr)["field"])
	}

	rr := ts.do(t, http.MethodPost, base+"/stats", adjustRequest{PlayerID: home[0], Field: "points_scored", Delta: maxStatDelta})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, maxStatDelta, decode[liveResponse](t, rr).Snapshot.Lines[home[0]].PointsScored)
}
