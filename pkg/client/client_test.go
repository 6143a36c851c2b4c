package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "abebebikila", DeriveUsername("Abebe Bikila"))
	assert.Equal(t, "ab", DeriveUsername("  A\tb\n"))
	assert.Equal(t, "", DeriveUsername(""))
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"statusCode":401,"message":"Unauthorized"}`))
			return
		}
		w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	resp, err := c.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Token)

	_, err = c.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "nope"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestCreateAccountSendsDerivedUsername(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3,"name":"Sara Tesfaye"}`))
	}))
	defer srv.Close()

	user, err := NewClient(srv.URL).CreateAccount(context.Background(), CreateAccountRequest{
		Name:     "Sara Tesfaye",
		Email:    "sara@example.com",
		Phone:    "0911",
		Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "3", user.ID.String())
	assert.Equal(t, "saratesfaye", got["username"])
	assert.Equal(t, "", got["profile"])
	assert.Equal(t, "pw", got["password"])
}

func TestAuthenticatedCallsNeedToken(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	ctx := context.Background()

	_, err := c.GetUser(ctx, "", "1")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = c.GetUserChallenges(ctx, "", "1")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = c.CreateChallenge(ctx, "", CreateChallengeRequest{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestGetUserAndChallenges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/7", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"id": "7",
			"email": "x@y.z",
			"points": 40,
			"challenges": [
				{"id": 1, "title": "Plant", "description": "d", "location": "Lat: 9.03, Lon: 38.74"},
				{"id": 2, "title": "Clean", "description": "d", "location": ""}
			],
			"solutions": [{"id": 5, "title": "s", "points": 3}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(time.Second))

	rec, err := c.GetUser(context.Background(), "tok", "7")
	require.NoError(t, err)

	p := rec.Profile("7")
	assert.Equal(t, 7, p.ID)
	assert.Equal(t, "Unknown User", p.Name)
	assert.Equal(t, "user_7", p.Username)
	assert.Equal(t, "x@y.z", p.Email)
	assert.Equal(t, "N/A", p.Phone)
	assert.Equal(t, "/placeholder.svg", p.Avatar)
	assert.Equal(t, "No bio provided", p.Bio)
	assert.Equal(t, 2, p.Stats.Challenges)
	assert.Equal(t, 1, p.Stats.Solutions)
	assert.Equal(t, 40, p.Stats.Points)

	challenges, err := c.GetUserChallenges(context.Background(), "tok", "7")
	require.NoError(t, err)
	require.Len(t, challenges, 2)
	assert.True(t, challenges[0].Location.Resolved)
	assert.InDelta(t, 9.03, challenges[0].Location.Point.Latitude, 1e-9)
	assert.False(t, challenges[1].Location.Resolved)
}

func TestGetUserChallengesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1}`))
	}))
	defer srv.Close()

	challenges, err := NewClient(srv.URL).GetUserChallenges(context.Background(), "tok", "1")
	require.NoError(t, err)
	assert.NotNil(t, challenges)
	assert.Empty(t, challenges)
}

func TestCreateChallengeMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/challenge/create", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Clean river", r.FormValue("title"))
		assert.Equal(t, "environment", r.FormValue("category"))

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "river.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(data))

		w.Write([]byte(`{"id": 11, "title": "Clean river", "description": "d", "location": {"latitude": 1.5, "longitude": 2.5}}`))
	}))
	defer srv.Close()

	ch, err := NewClient(srv.URL).CreateChallenge(context.Background(), "tok", CreateChallengeRequest{
		Title:     "Clean river",
		Category:  "environment",
		Location:  "Lat: 1.5, Lon: 2.5",
		ImageName: "river.png",
		Image:     strings.NewReader("PNGDATA"),
	})
	require.NoError(t, err)
	assert.Equal(t, "11", ch.ID.String())
	assert.True(t, ch.Location.Resolved)
}

func TestCallHookObservesOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":["email must be an email","password too short"]}`))
	}))
	defer srv.Close()

	var ops []string
	var lastErr error
	c := NewClient(srv.URL, WithCallHook(func(op string, _ time.Duration, err error) {
		ops = append(ops, op)
		lastErr = err
	}))

	_, err := c.CreateAccount(context.Background(), CreateAccountRequest{Name: "x"})
	require.Error(t, err)
	assert.Equal(t, []string{"create_account"}, ops)
	assert.Equal(t, err, lastErr)
	assert.Contains(t, err.Error(), "email must be an email; password too short")
}
