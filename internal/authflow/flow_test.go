package authflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/impact-portal/internal/models"
	"github.com/terra-clan/impact-portal/pkg/client"
)

type fakeGateway struct {
	loginErr  error
	token     string
	createErr error
}

func (f *fakeGateway) Login(ctx context.Context, req client.LoginRequest) (*client.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &client.LoginResponse{Token: f.token}, nil
}

func (f *fakeGateway) CreateAccount(ctx context.Context, req client.CreateAccountRequest) (*client.UserRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &client.UserRecord{ID: models.ID("1"), Name: req.Name}, nil
}

func TestOpenCloseToggle(t *testing.T) {
	var f Flow
	assert.Equal(t, ModalClosed, f.Modal)

	f.Toggle()
	assert.Equal(t, ModalClosed, f.Modal)

	require.NoError(t, f.Open(ModalSignIn))
	assert.Equal(t, ModalSignIn, f.Modal)

	f.Toggle()
	assert.Equal(t, ModalCreateAccount, f.Modal)
	f.Toggle()
	assert.Equal(t, ModalSignIn, f.Modal)

	require.NoError(t, f.Open(ModalCreateAccount))
	assert.Equal(t, ModalCreateAccount, f.Modal)

	f.Close()
	assert.Equal(t, ModalClosed, f.Modal)

	assert.ErrorIs(t, f.Open(Modal("settings")), ErrUnknownModal)
}

func TestParseModal(t *testing.T) {
	m, err := ParseModal("closed")
	require.NoError(t, err)
	assert.Equal(t, ModalClosed, m)

	m, err = ParseModal("sign-in")
	require.NoError(t, err)
	assert.Equal(t, ModalSignIn, m)

	_, err = ParseModal("nope")
	assert.ErrorIs(t, err, ErrUnknownModal)
}

func TestSubmitCreateAccount(t *testing.T) {
	svc := NewService(&fakeGateway{}, nil)
	f := &Flow{Modal: ModalCreateAccount}

	_, err := svc.SubmitCreateAccount(context.Background(), f, client.CreateAccountRequest{
		Name: "Sara", Email: "sara@example.com", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, ModalSignIn, f.Modal)
	assert.Equal(t, "sara@example.com", f.LoginEmail)
	assert.Equal(t, "pw", f.LoginPassword)
}

func TestSubmitCreateAccountFailure(t *testing.T) {
	cause := &client.APIError{StatusCode: 409, Message: "exists"}
	svc := NewService(&fakeGateway{createErr: cause}, nil)
	f := &Flow{Modal: ModalCreateAccount}

	_, err := svc.SubmitCreateAccount(context.Background(), f, client.CreateAccountRequest{Email: "x"})
	require.Error(t, err)
	assert.Equal(t, MsgCreateAccountFailed, err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, ModalCreateAccount, f.Modal)
}

func TestSubmitLogin(t *testing.T) {
	svc := NewService(&fakeGateway{token: "tok"}, nil)
	f := &Flow{Modal: ModalSignIn, LoginEmail: "a", LoginPassword: "b"}

	var begun string
	err := svc.SubmitLogin(context.Background(), f, client.LoginRequest{Email: "a", Password: "b"}, func(token string) error {
		begun = token
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", begun)
	assert.Equal(t, ModalClosed, f.Modal)
	assert.Empty(t, f.LoginEmail)
	assert.Empty(t, f.LoginPassword)
}

func TestSubmitLoginFailure(t *testing.T) {
	for _, gw := range []*fakeGateway{
		{loginErr: &client.APIError{StatusCode: 401}},
		{token: ""},
	} {
		svc := NewService(gw, nil)
		f := &Flow{Modal: ModalSignIn}

		err := svc.SubmitLogin(context.Background(), f, client.LoginRequest{}, func(string) error {
			t.Fatal("session must not begin")
			return nil
		})
		var blocking *BlockingError
		require.True(t, errors.As(err, &blocking))
		assert.Equal(t, MsgLoginFailed, blocking.Message)
		assert.Equal(t, ModalSignIn, f.Modal)
	}
}
