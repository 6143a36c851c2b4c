package profile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/impact-portal/internal/geo"
	"github.com/terra-clan/impact-portal/internal/identity"
	"github.com/terra-clan/impact-portal/internal/models"
	"github.com/terra-clan/impact-portal/pkg/client"
)

type fakeGateway struct {
	user          *client.UserRecord
	userErr       error
	challenges    []models.Challenge
	challengesErr error
	calls         atomic.Int32
}

func (f *fakeGateway) GetUser(ctx context.Context, token, id string) (*client.UserRecord, error) {
	f.calls.Add(1)
	return f.user, f.userErr
}

func (f *fakeGateway) GetUserChallenges(ctx context.Context, token, id string) ([]models.Challenge, error) {
	f.calls.Add(1)
	return f.challenges, f.challengesErr
}

func signedIn() *identity.Session {
	return &identity.Session{
		ViewerID:    "v1",
		BearerToken: "tok",
		Claims:      identity.Claims{Subject: "7"},
	}
}

func sampleChallenges() []models.Challenge {
	return []models.Challenge{
		{ID: "1", Title: "Plant", Location: geo.Resolve("Lat: 9.03, Lon: 38.74"), CreatedBy: &models.CreatorRef{ID: "7"}},
		{ID: "2", Title: "Clean", Location: geo.Resolve("")},
	}
}

func TestLoadRequiresSession(t *testing.T) {
	svc := NewService(&fakeGateway{}, nil)

	_, err := svc.Load(context.Background(), &identity.Session{ViewerID: "v"})
	assert.ErrorIs(t, err, identity.ErrNoSession)

	_, err = svc.Load(context.Background(), nil)
	assert.ErrorIs(t, err, identity.ErrNoSession)
}

func TestLoad(t *testing.T) {
	gw := &fakeGateway{
		user:       &client.UserRecord{ID: "7", Name: "Sara", Points: 12, Solutions: []models.Solution{{ID: "s1"}}, Challenges: sampleChallenges()},
		challenges: sampleChallenges(),
	}
	svc := NewService(gw, nil)

	page, err := svc.Load(context.Background(), signedIn())
	require.NoError(t, err)

	assert.EqualValues(t, 2, gw.calls.Load())
	assert.Equal(t, "Sara", page.User.Name)
	assert.Equal(t, "user_7", page.User.Username)
	assert.Equal(t, 2, page.User.Stats.Challenges)
	assert.Equal(t, 1, page.User.Stats.Solutions)
	assert.Len(t, page.Challenges, 2)
	assert.Len(t, page.Solutions, 1)
	require.Len(t, page.Impact.Markers, 1)
	assert.Equal(t, "Contributed by user 7", page.Impact.Markers[0].Popup)
	assert.Empty(t, page.Warnings)
}

func TestLoadUserFailure(t *testing.T) {
	gw := &fakeGateway{userErr: &client.APIError{StatusCode: 500}, challenges: sampleChallenges()}

	_, err := NewService(gw, nil).Load(context.Background(), signedIn())
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.StatusCode)
}

func TestLoadChallengesDegrade(t *testing.T) {
	gw := &fakeGateway{user: &client.UserRecord{ID: "7"}, challengesErr: errors.New("boom")}

	page, err := NewService(gw, nil).Load(context.Background(), signedIn())
	require.NoError(t, err)
	assert.NotNil(t, page.Challenges)
	assert.Empty(t, page.Challenges)
	assert.Equal(t, []string{WarnChallengesUnavailable}, page.Warnings)
	assert.Equal(t, "Unknown User", page.User.Name)
}

func TestEditBuffer(t *testing.T) {
	name := "New Name"
	bio := "Trees"
	buf := BeginEdit(models.User{Name: "Old", Bio: "x", Email: "a@b.c"})

	buf.Apply(models.EditForm{Name: &name})
	assert.Equal(t, "New Name", buf.Draft().Name)
	assert.Equal(t, "Old", buf.Cancel().Name)

	buf.Apply(models.EditForm{Bio: &bio})
	saved := buf.Save()
	assert.Equal(t, "Trees", saved.Bio)
	assert.Equal(t, "a@b.c", saved.Email)
	assert.Equal(t, "Trees", buf.Cancel().Bio)
}

func TestSaveAndDiscardEdit(t *testing.T) {
	gw := &fakeGateway{user: &client.UserRecord{ID: "7", Name: "Sara", Points: 3}}
	svc := NewService(gw, nil)
	sess := signedIn()
	phone := "0911000000"

	page, err := svc.SaveEdit(context.Background(), sess, models.EditForm{Phone: &phone})
	require.NoError(t, err)
	assert.True(t, page.Edited)
	assert.Equal(t, phone, page.User.Phone)

	// The edit survives a reload while fresh stats come through
	gw.user.Points = 9
	page, err = svc.Load(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, phone, page.User.Phone)
	assert.Equal(t, 9, page.User.Stats.Points)

	svc.DiscardEdit(sess)
	page, err = svc.Load(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, page.Edited)
	assert.Equal(t, "N/A", page.User.Phone)
}
