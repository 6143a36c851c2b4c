// Package authflow drives the sign-in and create-account modals. Exactly one
// modal is open at a time, or none.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/terra-clan/impact-portal/pkg/client"
)

// Modal identifies which dialog is open
type Modal string

const (
	ModalClosed        Modal = ""
	ModalSignIn        Modal = "sign-in"
	ModalCreateAccount Modal = "create-account"
)

// Messages shown to the user when a submission fails
const (
	MsgLoginFailed         = "Invalid email or password. Please try again."
	MsgCreateAccountFailed = "Failed to create account. Please try again."
)

// ErrUnknownModal is returned by Open for anything but the two modals
var ErrUnknownModal = errors.New("unknown modal")

// BlockingError carries the message a user must acknowledge
type BlockingError struct {
	Message string
	Err     error
}

func (e *BlockingError) Error() string {
	return e.Message
}

func (e *BlockingError) Unwrap() error {
	return e.Err
}

// Gateway is the subset of the backend client the flow needs
type Gateway interface {
	Login(ctx context.Context, req client.LoginRequest) (*client.LoginResponse, error)
	CreateAccount(ctx context.Context, req client.CreateAccountRequest) (*client.UserRecord, error)
}

// Flow is the modal state of one viewer
type Flow struct {
	Modal         Modal  `json:"modal"`
	LoginEmail    string `json:"loginEmail,omitempty"`
	LoginPassword string `json:"loginPassword,omitempty"`
}

// ParseModal validates a modal name; "closed" and "" both mean no modal
func ParseModal(s string) (Modal, error) {
	switch Modal(s) {
	case ModalSignIn, ModalCreateAccount:
		return Modal(s), nil
	case ModalClosed, "closed":
		return ModalClosed, nil
	default:
		return ModalClosed, fmt.Errorf("%w: %q", ErrUnknownModal, s)
	}
}

// Open shows one modal, closing the other
func (f *Flow) Open(m Modal) error {
	if m != ModalSignIn && m != ModalCreateAccount {
		return fmt.Errorf("%w: %q", ErrUnknownModal, m)
	}
	f.Modal = m
	return nil
}

// Close hides whichever modal is open
func (f *Flow) Close() {
	f.Modal = ModalClosed
}

// Toggle switches between sign-in and create-account. With no modal open it
// does nothing.
func (f *Flow) Toggle() {
	switch f.Modal {
	case ModalSignIn:
		f.Modal = ModalCreateAccount
	case ModalCreateAccount:
		f.Modal = ModalSignIn
	}
}

// Service submits the modal forms to the backend
type Service struct {
	gateway Gateway
	logger  *slog.Logger
}

// NewService creates an auth flow service
func NewService(gateway Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, logger: logger}
}

// SubmitCreateAccount registers an account. On success the create-account
// modal closes and sign-in opens with the new credentials filled in; on
// failure the modal stays open.
func (s *Service) SubmitCreateAccount(ctx context.Context, f *Flow, req client.CreateAccountRequest) (*client.UserRecord, error) {
	user, err := s.gateway.CreateAccount(ctx, req)
	if err != nil {
		s.logger.Error("failed to create account", "email", req.Email, "error", err)
		return nil, &BlockingError{Message: MsgCreateAccountFailed, Err: err}
	}

	f.LoginEmail = req.Email
	f.LoginPassword = req.Password
	f.Modal = ModalSignIn

	s.logger.Info("account created", "email", req.Email, "user_id", user.ID.String())
	return user, nil
}

// SubmitLogin exchanges credentials for a token and hands it to begin. On
// success every modal closes and the prefilled credentials are cleared.
func (s *Service) SubmitLogin(ctx context.Context, f *Flow, req client.LoginRequest, begin func(token string) error) error {
	resp, err := s.gateway.Login(ctx, req)
	if err == nil && resp.Token == "" {
		err = errors.New("empty token in login response")
	}
	if err != nil {
		s.logger.Error("login failed", "email", req.Email, "error", err)
		return &BlockingError{Message: MsgLoginFailed, Err: err}
	}

	if begin != nil {
		if err := begin(resp.Token); err != nil {
			return fmt.Errorf("failed to begin session: %w", err)
		}
	}

	f.Modal = ModalClosed
	f.LoginEmail = ""
	f.LoginPassword = ""
	return nil
}
