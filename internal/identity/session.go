package identity

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// ErrNoSession is returned when an operation needs a signed-in viewer
var ErrNoSession = errors.New("no active session")

const (
	keyViewerID  = "viewer_id"
	keyToken     = "token"
	keyCreatedAt = "created_at"
	keyModal     = "modal"
	keyEmail     = "login_email"
	keyExpanded  = "expanded"
)

// Session is the explicit identity passed to every component that needs one.
// It is created at login, cleared at logout and expires with the cookie.
type Session struct {
	ViewerID    string
	BearerToken string
	Claims      Claims
	CreatedAt   time.Time
	UI          UIState
}

// UIState is the per-viewer page state kept alongside the session
type UIState struct {
	Modal      string `json:"modal"`
	LoginEmail string `json:"loginEmail,omitempty"`
	Expanded   string `json:"expanded,omitempty"`
}

// Token implements TokenSource
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.BearerToken
}

// Authenticated reports whether the session carries a bearer token
func (s *Session) Authenticated() bool {
	return s != nil && s.BearerToken != ""
}

// UserID is the decoded token subject, for display and backend lookups only
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.Claims.Subject
}

// ViewerKey identifies the viewer for per-viewer state. Signed-in viewers are
// keyed by user id so their state follows them across browsers.
func (s *Session) ViewerKey() string {
	if s == nil {
		return ""
	}
	if s.Authenticated() && s.Claims.Subject != "" {
		return "user:" + s.Claims.Subject
	}
	return "anon:" + s.ViewerID
}

// SessionStore keeps sessions in signed cookies
type SessionStore struct {
	store  sessions.Store
	name   string
	reader *Reader
}

// SessionOptions configures the session cookie
type SessionOptions struct {
	Name   string
	Secret []byte
	MaxAge int
	Secure bool
}

// NewSessionStore creates a cookie backed session store
func NewSessionStore(opts SessionOptions, reader *Reader) *SessionStore {
	cs := sessions.NewCookieStore(opts.Secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	name := opts.Name
	if name == "" {
		name = "impact_session"
	}
	if reader == nil {
		reader = NewReader(nil)
	}

	return &SessionStore{store: cs, name: name, reader: reader}
}

// Load returns the viewer session for a request. A viewer without a cookie gets
// a fresh anonymous session; call Save to persist it.
func (s *SessionStore) Load(r *http.Request) (*Session, error) {
	raw, err := s.store.Get(r, s.name)
	if err != nil && raw == nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess := &Session{}
	if v, ok := raw.Values[keyViewerID].(string); ok && v != "" {
		sess.ViewerID = v
	} else {
		sess.ViewerID = uuid.NewString()
	}
	if v, ok := raw.Values[keyToken].(string); ok {
		sess.BearerToken = v
		sess.Claims = s.reader.Decode(v)
	}
	if v, ok := raw.Values[keyCreatedAt].(int64); ok {
		sess.CreatedAt = time.Unix(v, 0).UTC()
	}
	sess.UI.Modal, _ = raw.Values[keyModal].(string)
	sess.UI.LoginEmail, _ = raw.Values[keyEmail].(string)
	sess.UI.Expanded, _ = raw.Values[keyExpanded].(string)

	return sess, nil
}

// Save writes the session cookie
func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request, sess *Session) error {
	raw, _ := s.store.Get(r, s.name)
	raw.Values[keyViewerID] = sess.ViewerID
	setOrDelete(raw.Values, keyModal, sess.UI.Modal)
	setOrDelete(raw.Values, keyEmail, sess.UI.LoginEmail)
	setOrDelete(raw.Values, keyExpanded, sess.UI.Expanded)
	if sess.BearerToken != "" {
		raw.Values[keyToken] = sess.BearerToken
		raw.Values[keyCreatedAt] = sess.CreatedAt.Unix()
	} else {
		delete(raw.Values, keyToken)
		delete(raw.Values, keyCreatedAt)
	}

	if err := raw.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func setOrDelete(values map[interface{}]interface{}, key, v string) {
	if v == "" {
		delete(values, key)
		return
	}
	values[key] = v
}

// Begin attaches a bearer token to the viewer session
func (s *SessionStore) Begin(w http.ResponseWriter, r *http.Request, sess *Session, token string) error {
	sess.BearerToken = token
	sess.Claims = s.reader.Decode(token)
	sess.CreatedAt = time.Now().UTC()
	return s.Save(w, r, sess)
}

// End clears the bearer token; the anonymous viewer id is kept
func (s *SessionStore) End(w http.ResponseWriter, r *http.Request, sess *Session) error {
	sess.BearerToken = ""
	sess.Claims = Claims{}
	sess.CreatedAt = time.Time{}
	return s.Save(w, r, sess)
}
