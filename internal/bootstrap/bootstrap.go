// Package bootstrap wires the client stack together: token store,
// authenticated client with the refresh middleware, session façade and chat
// state. Everything shares one client instance, so a refreshed credential is
// visible to all callers at once.
package bootstrap

import (
	"time"

	"github.com/pkg/errors"

	"github.com/pechorka/chatik/internal/api"
	"github.com/pechorka/chatik/internal/chats"
	"github.com/pechorka/chatik/internal/session"
	"github.com/pechorka/chatik/internal/tokenstore"
	"github.com/pechorka/chatik/pkg/i18n"
)

type Config struct {
	BaseURL   string
	DBPath    string // empty means a temporary store
	Secret    string
	Lang      string
	Timeout   time.Duration
	Notifier  session.Notifier
	Navigator session.Navigator
	Localies  *i18n.Localies
}

type App struct {
	Client  *api.Client
	Store   *tokenstore.Store
	Session *session.Session
	Chats   *chats.Service
}

func New(cfg Config) (*App, error) {
	var store *tokenstore.Store
	var err error
	if cfg.DBPath == "" {
		store, err = tokenstore.NewTempStore(cfg.Secret)
	} else {
		store, err = tokenstore.NewStore(cfg.DBPath, cfg.Secret)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open token store")
	}

	if cfg.Localies == nil {
		cfg.Localies = i18n.New()
	}

	cli := api.NewClient(api.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout})

	sess := session.New(session.Config{
		Client:    cli,
		Store:     store,
		Notifier:  cfg.Notifier,
		Navigator: cfg.Navigator,
		Localies:  cfg.Localies,
		Lang:      cfg.Lang,
	})

	coord := api.NewCoordinator(api.CoordinatorConfig{
		Store:      store,
		Creds:      cli,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		OnAuthLost: sess.AuthLost,
	})
	cli.Use(api.RefreshOnAuthError(coord))

	chatSvc := chats.NewService(chats.Config{
		Client:   cli,
		Notifier: cfg.Notifier,
		Localies: cfg.Localies,
		Lang:     cfg.Lang,
	})

	return &App{
		Client:  cli,
		Store:   store,
		Session: sess,
		Chats:   chatSvc,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
