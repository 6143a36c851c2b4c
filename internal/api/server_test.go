package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/impact-portal/internal/authflow"
	"github.com/terra-clan/impact-portal/internal/catalog"
	"github.com/terra-clan/impact-portal/internal/config"
	"github.com/terra-clan/impact-portal/internal/feed"
	"github.com/terra-clan/impact-portal/internal/geo"
	"github.com/terra-clan/impact-portal/internal/health"
	"github.com/terra-clan/impact-portal/internal/identity"
	"github.com/terra-clan/impact-portal/internal/leaderboard"
	"github.com/terra-clan/impact-portal/internal/mappin"
	"github.com/terra-clan/impact-portal/internal/metrics"
	"github.com/terra-clan/impact-portal/internal/models"
	"github.com/terra-clan/impact-portal/internal/profile"
	"github.com/terra-clan/impact-portal/internal/storage"
	"github.com/terra-clan/impact-portal/pkg/client"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const userDocument = `{
	"id": 7,
	"name": "Sara Tesfaye",
	"username": "sara",
	"email": "sara@example.com",
	"points": 120,
	"challenges": [
		{"id": 1, "title": "Plant trees", "description": "d", "location": "Lat: 9.03, Lon: 38.74", "createdBy": {"id": 7}},
		{"id": 2, "title": "Clean river", "description": "d", "location": ""}
	],
	"solutions": [{"id": 3, "title": "Seedlings", "points": 5}]
}`

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testEnv struct {
	server   *httptest.Server
	http     *http.Client
	health   *health.Registry
	token    string
	geocoder *httptest.Server
	forms    *formRecorder
}

// formRecorder keeps the last challenge form the fake backend received
type formRecorder struct {
	mu   sync.Mutex
	last url.Values
}

func (f *formRecorder) set(v url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = v
}

func (f *formRecorder) get() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func backendToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "7",
		"username": "sara",
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func fakeBackend(t *testing.T, token string, forms *formRecorder) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req client.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"statusCode":401,"message":"Unauthorized"}`))
			return
		}
		w.Write([]byte(`{"token":"` + token + `"}`))
	})
	mux.HandleFunc("/user/create", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"name":"Sara Tesfaye","email":"sara@example.com"}`))
	})
	mux.HandleFunc("/user/7", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(userDocument))
	})
	mux.HandleFunc("/challenge/create", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		forms.set(r.MultipartForm.Value)
		resp, _ := json.Marshal(map[string]interface{}{
			"id":          21,
			"title":       r.FormValue("title"),
			"description": r.FormValue("description"),
			"location":    r.FormValue("location"),
			"category":    r.FormValue("category"),
		})
		w.WriteHeader(http.StatusCreated)
		w.Write(resp)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	token := backendToken(t)
	forms := &formRecorder{}
	backend := httptest.NewServer(fakeBackend(t, token, forms))
	t.Cleanup(backend.Close)

	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") == "0" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"city":"Addis Ababa","countryName":"Ethiopia","streetName":"Churchill Ave"}`))
	}))
	t.Cleanup(geocoder.Close)

	loader := catalog.NewLoader()
	require.NoError(t, loader.LoadFromDir("../../catalog"))

	gw := client.NewClient(backend.URL, client.WithTimeout(5*time.Second))
	store := storage.NewMemoryStore()
	hub := NewHub()
	registry := health.NewRegistry()
	registry.Register("reactions", health.NewStoreChecker("memory", store))

	srv := NewServer(config.ServerConfig{}, Deps{
		Sessions: identity.NewSessionStore(identity.SessionOptions{Secret: []byte(testSecret), MaxAge: 3600}, nil),
		Auth:     authflow.NewService(gw, nil),
		Profiles: profile.NewService(gw, nil),
		Feed:     feed.NewService(loader, store, hub, nil),
		Catalog:  loader,
		Board:    leaderboard.NewBoard(loader),
		Embeds:   mappin.NewEmbedBuilder("", "test-key"),
		Gateway:  gw,
		Geocoder: geo.NewReverseGeocoder(geocoder.URL, time.Second),
		Health:   registry,
		Metrics:  metrics.NewMetrics(nil),
		Hub:      hub,
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server:   ts,
		http:     &http.Client{Jar: jar, Timeout: 5 * time.Second},
		health:   registry,
		token:    token,
		geocoder: geocoder,
		forms:    forms,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := e.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	status, env := e.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "sara@example.com",
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, status, "login: %+v", env.Error)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, env = e.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"ready"`)

	e.health.Register("backend", health.NewBackendChecker(pingFunc(func(context.Context) error {
		return errors.New("connection refused")
	})))
	status, env = e.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, env.Success)
	assert.Contains(t, string(env.Data), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodGet, "/api/v1/pins", nil)

	resp, err := e.http.Get(e.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `route="/api/v1/pins"`)
}

func TestListPins(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodGet, "/api/v1/pins?category=challenge", nil)
	require.Equal(t, http.StatusOK, status)
	data := decode[struct {
		Pins  []models.Pin `json:"pins"`
		Total int          `json:"total"`
	}](t, env.Data)
	require.NotEmpty(t, data.Pins)
	for _, p := range data.Pins {
		assert.Equal(t, models.PinChallenge, p.Type)
	}

	status, env = e.do(t, http.MethodGet, "/api/v1/pins?search=central", nil)
	require.Equal(t, http.StatusOK, status)
	data = decode[struct {
		Pins  []models.Pin `json:"pins"`
		Total int          `json:"total"`
	}](t, env.Data)
	require.Len(t, data.Pins, 1)
	assert.Equal(t, "Central Park Tree Planting", data.Pins[0].Title)
	assert.Equal(t, mappin.ColorEmerald, data.Pins[0].Color)

	status, env = e.do(t, http.MethodGet, "/api/v1/pins?category=volcano", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)

	status, _ = e.do(t, http.MethodGet, "/api/v1/pins?source=mine", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMapEmbed(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodGet, "/api/v1/map/embed?pin=1&style=terrain&zoom=50", nil)
	require.Equal(t, http.StatusOK, status)
	embed := decode[mappin.Embed](t, env.Data)
	assert.Equal(t, "Sheep Meadow, Central Park, Manhattan, New York, USA", embed.Query)
	assert.Equal(t, "roadmap", embed.MapType)
	assert.Equal(t, mappin.MaxZoom, embed.Zoom)
	assert.Contains(t, embed.URL, "key=test-key")

	status, env = e.do(t, http.MethodGet, "/api/v1/map/embed", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "World", decode[mappin.Embed](t, env.Data).Query)

	status, _ = e.do(t, http.MethodGet, "/api/v1/map/embed?pin=404", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFeedToggleRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodPost, "/api/v1/feed/1/like", nil)
	require.Equal(t, http.StatusOK, status)
	event := decode[models.ReactionEvent](t, env.Data)
	assert.True(t, event.Active)
	assert.Equal(t, 2848, event.Count)

	// The overlay survives a reload for the same viewer
	status, env = e.do(t, http.MethodGet, "/api/v1/feed/1", nil)
	require.Equal(t, http.StatusOK, status)
	post := decode[models.PostView](t, env.Data)
	assert.True(t, post.Liked)
	assert.Equal(t, 2848, post.DisplayLikes)
	assert.False(t, post.Bookmarked)

	status, env = e.do(t, http.MethodPost, "/api/v1/feed/1/like", nil)
	require.Equal(t, http.StatusOK, status)
	event = decode[models.ReactionEvent](t, env.Data)
	assert.False(t, event.Active)
	assert.Equal(t, 2847, event.Count)

	status, env = e.do(t, http.MethodPost, "/api/v1/feed/404/bookmark", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestFeedConfirmAndExpand(t *testing.T) {
	e := newTestEnv(t)

	status, _ := e.do(t, http.MethodPost, "/api/v1/feed/2/bookmark/confirm", nil)
	assert.Equal(t, http.StatusNotFound, status)

	e.do(t, http.MethodPost, "/api/v1/feed/2/bookmark", nil)
	status, env := e.do(t, http.MethodPost, "/api/v1/feed/2/bookmark/confirm", nil)
	require.Equal(t, http.StatusOK, status)
	post := decode[models.PostView](t, env.Data)
	assert.True(t, post.Bookmarked)
	assert.Equal(t, 187, post.DisplayMarks)
	assert.False(t, post.Expanded)

	status, _ = e.do(t, http.MethodPost, "/api/v1/feed/2/share/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPut, "/api/v1/feed/3/expand", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = e.do(t, http.MethodGet, "/api/v1/feed", nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[struct {
		Posts    []models.PostView `json:"posts"`
		Expanded string            `json:"expanded"`
	}](t, env.Data)
	assert.Equal(t, "3", list.Expanded)
	for _, p := range list.Posts {
		assert.Equal(t, p.ID == "3", p.Expanded, "post %s", p.ID)
	}

	// Single post reads follow the session's expanded post
	_, env = e.do(t, http.MethodGet, "/api/v1/feed/2", nil)
	assert.False(t, decode[models.PostView](t, env.Data).Expanded)
	_, env = e.do(t, http.MethodGet, "/api/v1/feed/3", nil)
	assert.True(t, decode[models.PostView](t, env.Data).Expanded)

	status, _ = e.do(t, http.MethodDelete, "/api/v1/feed/expanded", nil)
	require.Equal(t, http.StatusOK, status)
	_, env = e.do(t, http.MethodGet, "/api/v1/feed", nil)
	assert.Contains(t, string(env.Data), `"expanded":""`)

	status, _ = e.do(t, http.MethodPut, "/api/v1/feed/404/expand", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLoginProfileLogout(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", env.Error.Code)

	e.login(t)

	status, env = e.do(t, http.MethodGet, "/api/v1/auth/whoami", nil)
	require.Equal(t, http.StatusOK, status)
	who := decode[viewerResponse](t, env.Data)
	assert.True(t, who.Authenticated)
	assert.Equal(t, "7", who.UserID)
	assert.Equal(t, "sara", who.Username)

	status, env = e.do(t, http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, status, "%+v", env.Error)
	page := decode[profile.Page](t, env.Data)
	assert.Equal(t, "Sara Tesfaye", page.User.Name)
	assert.Equal(t, 2, page.User.Stats.Challenges)
	assert.Equal(t, 1, page.User.Stats.Solutions)
	assert.Equal(t, models.DefaultPhone, page.User.Phone)
	assert.Len(t, page.Impact.Markers, 1)
	assert.False(t, page.Edited)

	status, env = e.do(t, http.MethodPut, "/api/v1/profile", map[string]string{"bio": "Planting trees"})
	require.Equal(t, http.StatusOK, status)
	page = decode[profile.Page](t, env.Data)
	assert.True(t, page.Edited)
	assert.Equal(t, "Planting trees", page.User.Bio)

	status, env = e.do(t, http.MethodPut, "/api/v1/profile", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Error.Message, "email")

	status, _ = e.do(t, http.MethodDelete, "/api/v1/profile/edit", nil)
	require.Equal(t, http.StatusOK, status)
	_, env = e.do(t, http.MethodGet, "/api/v1/profile", nil)
	assert.False(t, decode[profile.Page](t, env.Data).Edited)

	status, env = e.do(t, http.MethodGet, "/api/v1/map/markers", nil)
	require.Equal(t, http.StatusOK, status)
	tiles := decode[mappin.TileView](t, env.Data)
	require.Len(t, tiles.Markers, 1)
	assert.Equal(t, "Contributed by user 7", tiles.Markers[0].Popup)

	status, env = e.do(t, http.MethodGet, "/api/v1/pins?source=mine", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "Plant trees")

	status, _ = e.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	_, env = e.do(t, http.MethodGet, "/api/v1/auth/whoami", nil)
	assert.False(t, decode[viewerResponse](t, env.Data).Authenticated)
	status, _ = e.do(t, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginFailure(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "sara@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "login_failed", env.Error.Code)
	assert.Equal(t, authflow.MsgLoginFailed, env.Error.Message)

	status, _ = e.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRegisterOpensSignIn(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "Sara Tesfaye",
		"email":    "sara@example.com",
		"phone":    "0911",
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	created := decode[struct {
		Modal authflow.Flow `json:"modal"`
	}](t, env.Data)
	assert.Equal(t, authflow.ModalSignIn, created.Modal.Modal)
	assert.Equal(t, "secret", created.Modal.LoginPassword)

	status, env = e.do(t, http.MethodGet, "/api/v1/auth/modal", nil)
	require.Equal(t, http.StatusOK, status)
	flow := decode[authflow.Flow](t, env.Data)
	assert.Equal(t, authflow.ModalSignIn, flow.Modal)
	assert.Equal(t, "sara@example.com", flow.LoginEmail)
	assert.Empty(t, flow.LoginPassword)

	e.login(t)
	_, env = e.do(t, http.MethodGet, "/api/v1/auth/modal", nil)
	flow = decode[authflow.Flow](t, env.Data)
	assert.Equal(t, authflow.ModalClosed, flow.Modal)
	assert.Empty(t, flow.LoginEmail)
}

func TestModalActions(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodPost, "/api/v1/auth/modal", map[string]string{"action": "toggle"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, authflow.ModalClosed, decode[authflow.Flow](t, env.Data).Modal)

	_, env = e.do(t, http.MethodPost, "/api/v1/auth/modal", map[string]string{"action": "open", "modal": "sign-in"})
	assert.Equal(t, authflow.ModalSignIn, decode[authflow.Flow](t, env.Data).Modal)

	_, env = e.do(t, http.MethodPost, "/api/v1/auth/modal", map[string]string{"action": "toggle"})
	assert.Equal(t, authflow.ModalCreateAccount, decode[authflow.Flow](t, env.Data).Modal)

	_, env = e.do(t, http.MethodPost, "/api/v1/auth/modal", map[string]string{"action": "close"})
	assert.Equal(t, authflow.ModalClosed, decode[authflow.Flow](t, env.Data).Modal)

	status, _ = e.do(t, http.MethodPost, "/api/v1/auth/modal", map[string]string{"action": "open", "modal": "settings"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPost, "/api/v1/auth/modal", map[string]string{"action": "spin"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLeaderboardAndImpact(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodGet, "/api/v1/leaderboard", nil)
	require.Equal(t, http.StatusOK, status)
	board := decode[models.LeaderboardResponse](t, env.Data)
	assert.Equal(t, "month", board.Timeframe)
	require.NotEmpty(t, board.Entries)
	assert.Equal(t, 1, board.Entries[0].Rank)

	status, _ = e.do(t, http.MethodGet, "/api/v1/leaderboard?timeframe=decade", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = e.do(t, http.MethodGet, "/api/v1/impact?view=personal", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "personal", decode[models.ImpactResponse](t, env.Data).View)

	status, _ = e.do(t, http.MethodGet, "/api/v1/impact?view=galactic", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestReverseGeocode(t *testing.T) {
	e := newTestEnv(t)

	status, env := e.do(t, http.MethodGet, "/api/v1/geocode/reverse?lat=9.03&lon=38.74&accuracy=12", nil)
	require.Equal(t, http.StatusOK, status)
	addr := decode[geo.Address](t, env.Data)
	assert.Equal(t, "Addis Ababa, Ethiopia", addr.Location)
	assert.Equal(t, "Churchill Ave, Addis Ababa, Ethiopia", addr.Detailed)
	assert.Equal(t, 12.0, addr.Accuracy)

	status, env = e.do(t, http.MethodGet, "/api/v1/geocode/reverse?lat=0&lon=38.74", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0.0000, 38.7400", decode[geo.Address](t, env.Data).Location)

	status, _ = e.do(t, http.MethodGet, "/api/v1/geocode/reverse?lat=abc&lon=1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = e.do(t, http.MethodGet, "/api/v1/geocode/reverse?lat=95&lon=1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func challengeRequest(t *testing.T, baseURL string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("image", "river.png")
	require.NoError(t, err)
	part.Write([]byte("PNGDATA"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/challenges", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateChallenge(t *testing.T) {
	e := newTestEnv(t)
	fields := map[string]string{
		"title":       "Clean river",
		"description": "Pick up plastic along the bank",
		"category":    "Environment",
		"latitude":    "9.03",
		"longitude":   "38.74",
	}

	status, _ := e.send(t, challengeRequest(t, e.server.URL, fields))
	assert.Equal(t, http.StatusUnauthorized, status)

	e.login(t)

	status, env := e.send(t, challengeRequest(t, e.server.URL, fields))
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	ch := decode[models.Challenge](t, env.Data)
	assert.Equal(t, "21", ch.ID.String())
	assert.Equal(t, "environment", ch.Category)
	pt, ok := ch.Location.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 9.03, pt.Latitude, 1e-9)
	assert.Equal(t, "9.030000, 38.740000", e.forms.get().Get("detailedAddress"))

	// A typed place name is kept next to the coordinates
	fields["location"] = "Addis Ababa, Ethiopia"
	status, env = e.send(t, challengeRequest(t, e.server.URL, fields))
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	sent := e.forms.get()
	assert.Equal(t, "Lat: 9.03, Lon: 38.74", sent.Get("location"))
	assert.Equal(t, "Addis Ababa, Ethiopia", sent.Get("detailedAddress"))

	fields["detailedAddress"] = "Churchill Ave"
	status, _ = e.send(t, challengeRequest(t, e.server.URL, fields))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Churchill Ave, Addis Ababa, Ethiopia", e.forms.get().Get("detailedAddress"))
	delete(fields, "location")
	delete(fields, "detailedAddress")

	fields["category"] = "volcanoes"
	status, env = e.send(t, challengeRequest(t, e.server.URL, fields))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Error.Message, "category must be one of")

	fields["category"] = "health"
	fields["latitude"] = "north"
	status, _ = e.send(t, challengeRequest(t, e.server.URL, fields))
	assert.Equal(t, http.StatusBadRequest, status)
}

// dialFeed opens the live feed socket carrying the env's session cookie,
// or no cookie at all when anonymous is set
func (e *testEnv) dialFeed(t *testing.T, anonymous bool) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if !anonymous {
		u, err := url.Parse(e.server.URL)
		require.NoError(t, err)
		for _, c := range e.http.Jar.Cookies(u) {
			header.Add("Cookie", c.String())
		}
	}

	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/feed"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello FeedMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello.Type)
	assert.NotEmpty(t, hello.Data)
	return conn
}

func TestFeedSocketReceivesReactions(t *testing.T) {
	e := newTestEnv(t)

	// Pin the viewer id in the cookie jar before dialing
	status, _ := e.do(t, http.MethodPut, "/api/v1/feed/1/expand", nil)
	require.Equal(t, http.StatusOK, status)

	conn := e.dialFeed(t, false)
	other := e.dialFeed(t, true)

	status, _ = e.do(t, http.MethodPost, "/api/v1/feed/2/like", nil)
	require.Equal(t, http.StatusOK, status)

	var msg FeedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "reaction", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "2", msg.Event.EntityID)
	assert.Equal(t, models.ReactionLike, msg.Event.Kind)
	assert.True(t, msg.Event.Active)
	assert.Equal(t, 1924, msg.Event.Count)

	// Another viewer's socket never sees this viewer's overlay
	other.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var leaked FeedMessage
	err := other.ReadJSON(&leaked)
	require.Error(t, err, "unexpected frame %+v", leaked)
	var netErr net.Error
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())
}

func TestHubDropsForLaggingClients(t *testing.T) {
	h := NewHub()
	c := h.register("anon:a")
	defer h.unregister(c)
	other := h.register("anon:b")
	defer h.unregister(other)

	for i := 0; i < hubSendBuffer+5; i++ {
		h.Publish("anon:a", models.ReactionEvent{Type: "reaction", EntityID: "1"})
	}
	assert.Len(t, c.send, hubSendBuffer)
	assert.Empty(t, other.send)
	assert.Equal(t, 2, h.Clients())
}
