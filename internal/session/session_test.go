package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pechorka/chatik/internal/api"
	"github.com/pechorka/chatik/internal/models"
	"github.com/pechorka/chatik/internal/session"
	"github.com/pechorka/chatik/internal/tokenstore"
)

type fakeNotifier struct {
	notices []string
}

func (n *fakeNotifier) Notify(text string) {
	n.notices = append(n.notices, text)
}

type fakeNavigator struct {
	views []string
}

func (n *fakeNavigator) ToChat()   { n.views = append(n.views, "chat") }
func (n *fakeNavigator) ToSignIn() { n.views = append(n.views, "sign-in") }

type fixture struct {
	session   *session.Session
	store     *tokenstore.Store
	notifier  *fakeNotifier
	navigator *fakeNavigator
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := tokenstore.NewTempStore("test secret")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	notifier := &fakeNotifier{}
	navigator := &fakeNavigator{}
	cli := api.NewClient(api.Config{BaseURL: srv.URL})
	sess := session.New(session.Config{
		Client:    cli,
		Store:     store,
		Notifier:  notifier,
		Navigator: navigator,
	})
	return &fixture{session: sess, store: store, notifier: notifier, navigator: navigator}
}

func writeUser(w http.ResponseWriter) {
	w.Write([]byte(`{
		"id": 1,
		"username": "alice",
		"first_name": "Alice",
		"last_name": "Liddell",
		"last_online": null,
		"is_active": true,
		"is_admin": false
	}`))
}

func TestSignInSuccess(t *testing.T) {
	so := assert.New(t)

	var meAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		so.Equal("alice", r.PostForm.Get("username"))
		so.Equal("correctpw", r.PostForm.Get("password"))
		w.Write([]byte(`{"access_token":"A1","refresh_token":"R1"}`))
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		meAuth = r.Header.Get("Authorization")
		writeUser(w)
	})

	f := newFixture(t, mux)
	f.session.SignIn(context.Background(), "alice", "correctpw")

	access, err := f.store.Get(tokenstore.KindAccess)
	so.NoError(err)
	so.Equal("A1", access)
	refresh, err := f.store.Get(tokenstore.KindRefresh)
	so.NoError(err)
	so.Equal("R1", refresh)

	so.Equal("Bearer A1", meAuth, "profile fetch uses the fresh token")
	require.NotNil(t, f.session.User())
	so.Equal("alice", f.session.User().Username)
	so.Equal("Alice Liddell", f.session.DisplayName())
	so.Equal([]string{"chat"}, f.navigator.views)
	so.Empty(f.notifier.notices)
}

func TestSignInWrongPassword(t *testing.T) {
	so := assert.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	f := newFixture(t, mux)
	f.session.SignIn(context.Background(), "alice", "wrongpw")

	so.Equal([]string{"Неверный пароль"}, f.notifier.notices)
	so.Empty(f.navigator.views, "no navigation on failed sign-in")
	_, err := f.store.Get(tokenstore.KindAccess)
	so.ErrorIs(err, tokenstore.ErrNotFound, "no tokens stored")
	so.Nil(f.session.User())
}

func TestSignInUnknownUsername(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	f := newFixture(t, mux)
	f.session.SignIn(context.Background(), "bob", "pw")

	assert.Equal(t, []string{"Неверное имя пользователя"}, f.notifier.notices)
}

func TestSignUpChainsSignIn(t *testing.T) {
	so := assert.New(t)

	var order []string
	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		so.Equal("pw", body["password_confirm"], "wire keys are snake_case")
		order = append(order, "register")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "token")
		w.Write([]byte(`{"access_token":"A1","refresh_token":"R1"}`))
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "me")
		writeUser(w)
	})

	f := newFixture(t, mux)
	f.session.SignUp(context.Background(), "alice", "pw", "pw")

	so.Equal([]string{"register", "token", "me"}, order)
	so.Equal([]string{"chat"}, f.navigator.views)
	so.Empty(f.notifier.notices)
}

func TestSignUpErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		notice string
	}{
		{name: "username taken", status: http.StatusConflict, notice: "Это имя уже занято"},
		{name: "password mismatch", status: http.StatusBadRequest, notice: "Пароли не совпадают"},
		{name: "other", status: http.StatusInternalServerError, notice: "Что-то пошло не так..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			f := newFixture(t, mux)
			f.session.SignUp(context.Background(), "alice", "pw", "pw")

			assert.Equal(t, []string{tt.notice}, f.notifier.notices)
			assert.Empty(t, f.navigator.views)
		})
	}
}

func TestSignOutCleansUpEvenWhenRevokeFails(t *testing.T) {
	so := assert.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"A1","refresh_token":"R1"}`))
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeUser(w)
	})
	mux.HandleFunc("/token/revoke", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	f := newFixture(t, mux)
	ctx := context.Background()
	f.session.SignIn(ctx, "alice", "correctpw")
	require.NotNil(t, f.session.User())

	f.session.SignOut(ctx)

	so.Nil(f.session.User())
	_, err := f.store.Get(tokenstore.KindAccess)
	so.ErrorIs(err, tokenstore.ErrNotFound)
	_, err = f.store.Get(tokenstore.KindRefresh)
	so.ErrorIs(err, tokenstore.ErrNotFound)
	so.Equal([]string{"chat", "sign-in"}, f.navigator.views)
	so.Contains(f.notifier.notices, "Не удалось завершить сессию на сервере")
}

func TestSearchUsers(t *testing.T) {
	so := assert.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/users/search", func(w http.ResponseWriter, r *http.Request) {
		so.Equal("ali", r.URL.Query().Get("q"))
		w.Write([]byte(`[{"id":1,"username":"alice","first_name":"Alice","last_name":"","last_online":null,"is_active":true,"is_admin":false}]`))
	})

	f := newFixture(t, mux)
	users := f.session.SearchUsers(context.Background(), "ali")

	require.Len(t, users, 1)
	so.Equal("alice", users[0].Username)
}

func TestRestore(t *testing.T) {
	so := assert.New(t)

	var meAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		meAuth = r.Header.Get("Authorization")
		writeUser(w)
	})

	f := newFixture(t, mux)

	restored, err := f.session.Restore()
	so.NoError(err)
	so.False(restored, "empty store restores nothing")

	require.NoError(t, f.store.Set(models.TokenPair{AccessToken: "A1", RefreshToken: "R1"}))
	restored, err = f.session.Restore()
	so.NoError(err)
	so.True(restored)

	f.session.CurrentUser(context.Background())
	so.Equal("Bearer A1", meAuth)
}

func TestAuthLost(t *testing.T) {
	so := assert.New(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"A1","refresh_token":"R1"}`))
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeUser(w)
	})

	f := newFixture(t, mux)
	ctx := context.Background()
	f.session.SignIn(ctx, "alice", "correctpw")
	require.NotNil(t, f.session.User())

	f.session.AuthLost(ctx)

	so.Nil(f.session.User())
	so.Equal([]string{"chat", "sign-in"}, f.navigator.views)
	so.Contains(f.notifier.notices, "Сессия истекла, войдите снова")
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user models.User
		want string
	}{
		{name: "full name", user: models.User{Username: "alice", FirstName: "Alice", LastName: "Liddell"}, want: "Alice Liddell"},
		{name: "first only", user: models.User{Username: "alice", FirstName: "Alice"}, want: "Alice"},
		{name: "username fallback", user: models.User{Username: "alice"}, want: "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
				raw, err := json.Marshal(map[string]interface{}{
					"id": 1, "username": tt.user.Username,
					"first_name": tt.user.FirstName, "last_name": tt.user.LastName,
					"last_online": nil, "is_active": true, "is_admin": false,
				})
				require.NoError(t, err)
				w.Write(raw)
			})

			f := newFixture(t, mux)
			f.session.CurrentUser(context.Background())

			assert.Equal(t, tt.want, f.session.DisplayName())
		})
	}
}
