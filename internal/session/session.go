// Package session implements the user-facing operations: sign in, sign up,
// sign out, current user. Every operation fails soft: the error is mapped to
// a user-facing notification and never propagates to the caller.
package session

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"

	"github.com/pechorka/chatik/internal/api"
	"github.com/pechorka/chatik/internal/models"
	"github.com/pechorka/chatik/internal/tokenstore"
	"github.com/pechorka/chatik/pkg/i18n"
)

// Notifier shows a user-facing notice. The UI decides how.
type Notifier interface {
	Notify(text string)
}

// Navigator switches the visible view.
type Navigator interface {
	ToChat()
	ToSignIn()
}

type Session struct {
	cli       *api.Client
	store     *tokenstore.Store
	notifier  Notifier
	navigator Navigator
	loc       *i18n.Localies
	lang      string

	mu   sync.RWMutex
	user *models.User
}

type Config struct {
	Client    *api.Client
	Store     *tokenstore.Store
	Notifier  Notifier
	Navigator Navigator
	Localies  *i18n.Localies
	Lang      string
}

func New(cfg Config) *Session {
	if cfg.Localies == nil {
		cfg.Localies = i18n.New()
	}
	if cfg.Lang == "" {
		cfg.Lang = "ru"
	}
	return &Session{
		cli:       cfg.Client,
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		navigator: cfg.Navigator,
		loc:       cfg.Localies,
		lang:      cfg.Lang,
	}
}

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// SignUp registers the user and, on success, signs in with the same
// credentials to materialize a session.
func (s *Session) SignUp(ctx context.Context, username, password, passwordConfirm string) {
	_, err := s.cli.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Path:   "register",
		Body: registerRequest{
			Username:        username,
			Password:        password,
			PasswordConfirm: passwordConfirm,
		},
	})
	if err != nil {
		switch api.StatusOf(err) {
		case http.StatusConflict:
			s.notify("sign_up.username_taken")
		case http.StatusBadRequest:
			s.notify("sign_up.password_mismatch")
		default:
			s.notify("error.generic")
		}
		return
	}

	s.SignIn(ctx, username, password)
}

// SignIn exchanges credentials for a token pair, stores it, fetches the
// current user and navigates to the chat view. The token endpoint expects
// form-encoded credentials, not JSON.
func (s *Session) SignIn(ctx context.Context, username, password string) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := s.cli.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Path:   "token",
		Form:   form,
	})
	if err != nil {
		switch api.StatusOf(err) {
		case http.StatusNotFound:
			s.notify("sign_in.unknown_username")
		case http.StatusBadRequest:
			s.notify("sign_in.wrong_password")
		default:
			s.notify("error.generic")
		}
		return
	}

	var pair models.TokenPair
	if err := resp.Decode(&pair); err != nil {
		s.notify("error.generic")
		return
	}
	if err := s.store.Set(pair); err != nil {
		s.notify("error.generic")
		return
	}
	s.cli.SetCredential(pair.AccessToken)

	// fails soft on its own; a signed-in user with a failed profile fetch
	// still lands on the chat view, same as the source
	s.CurrentUser(ctx)

	s.navigator.ToChat()
}

// SignOut revokes the tokens on the server and cleans up locally. Local
// cleanup and navigation run even when the revoke call fails: the server
// keeps a token it considers valid, but this client is signed out.
func (s *Session) SignOut(ctx context.Context) {
	_, err := s.cli.Do(ctx, &api.Request{Method: http.MethodPost, Path: "token/revoke"})
	if err != nil {
		s.notify("sign_out.revoke_failed")
	}

	s.setUser(nil)
	s.cli.SetCredential("")
	if err := s.store.Clear(); err != nil {
		s.notify("error.generic")
	}
	s.navigator.ToSignIn()
}

// CurrentUser fetches the profile and replaces the in-memory user wholesale.
func (s *Session) CurrentUser(ctx context.Context) *models.User {
	resp, err := s.cli.Do(ctx, &api.Request{Method: http.MethodGet, Path: "users/me"})
	if err != nil {
		s.notify("error.generic")
		return nil
	}
	var user models.User
	if err := resp.Decode(&user); err != nil {
		s.notify("error.generic")
		return nil
	}
	s.setUser(&user)
	return &user
}

func (s *Session) SearchUsers(ctx context.Context, q string) []models.User {
	query := url.Values{}
	query.Set("q", q)
	resp, err := s.cli.Do(ctx, &api.Request{
		Method: http.MethodGet,
		Path:   "users/search",
		Query:  query,
	})
	if err != nil {
		s.notify("error.generic")
		return nil
	}
	var users []models.User
	if err := resp.Decode(&users); err != nil {
		s.notify("error.generic")
		return nil
	}
	return users
}

// Restore loads the persisted access token into the client credential, so a
// restarted client keeps its session. Returns false when nothing is stored.
func (s *Session) Restore() (bool, error) {
	access, err := s.store.Get(tokenstore.KindAccess)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to restore session")
	}
	s.cli.SetCredential(access)
	return true, nil
}

// AuthLost is the forced-reauthentication path: the refresh coordinator
// calls it when a token refresh fails terminally. The in-memory session is
// dropped and the user lands on the sign-in view. The stored pair is kept:
// a refresh that failed on a network blip may still be good after restart.
func (s *Session) AuthLost(ctx context.Context) {
	s.setUser(nil)
	s.cli.SetCredential("")
	s.notify("session.expired")
	s.navigator.ToSignIn()
}

// User returns the current user or nil when not signed in.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// DisplayName is first name plus last name when set, otherwise the username.
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return ""
	}
	name := s.user.FirstName
	if name != "" && s.user.LastName != "" {
		name += " " + s.user.LastName
	}
	if name == "" {
		name = s.user.Username
	}
	return name
}

func (s *Session) setUser(user *models.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

func (s *Session) notify(id string) {
	s.notifier.Notify(s.loc.MustGet(s.lang, id))
}
