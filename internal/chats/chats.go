// Package chats holds the chat list state consumed by the UI: the fetched
// chats with synthesized preview messages, the currently open chat, and the
// message history loaded per chat.
package chats

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/pechorka/chatik/internal/api"
	"github.com/pechorka/chatik/internal/models"
	"github.com/pechorka/chatik/pkg/i18n"
)

const (
	savedMessagesName     = "Saved Messages"
	savedMessagesImageURL = "/bookmark.svg"
)

type Notifier interface {
	Notify(text string)
}

type Service struct {
	cli      *api.Client
	notifier Notifier
	loc      *i18n.Localies
	lang     string

	mu      sync.RWMutex
	chats   []models.Chat
	current *models.Chat
}

type Config struct {
	Client   *api.Client
	Notifier Notifier
	Localies *i18n.Localies
	Lang     string
}

func NewService(cfg Config) *Service {
	if cfg.Localies == nil {
		cfg.Localies = i18n.New()
	}
	if cfg.Lang == "" {
		cfg.Lang = "ru"
	}
	return &Service{
		cli:      cfg.Client,
		notifier: cfg.Notifier,
		loc:      cfg.Localies,
		lang:     cfg.Lang,
	}
}

// List fetches all chats and replaces the local list. Each chat gets a
// preview built from its last message; the saved-messages chat gets its
// display name and icon substituted client-side.
func (s *Service) List(ctx context.Context) []models.Chat {
	resp, err := s.cli.Do(ctx, &api.Request{Method: http.MethodGet, Path: "chats"})
	if err != nil {
		s.notify("error.generic")
		return nil
	}
	var chats []models.Chat
	if err := resp.Decode(&chats); err != nil {
		s.notify("error.generic")
		return nil
	}

	for i := range chats {
		chats[i].PreviewMessage = previewOf(&chats[i])
		if chats[i].Type == models.ChatSavedMessages {
			chats[i].Name = savedMessagesName
			chats[i].ImageURL = savedMessagesImageURL
		}
	}

	s.mu.Lock()
	s.chats = chats
	s.current = nil
	s.mu.Unlock()

	return chats
}

// Messages loads a page of history for the chat and appends it to the local
// copy. Zero limit/offset are not sent.
func (s *Service) Messages(ctx context.Context, chatID int64, limit, offset int) []models.Message {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	resp, err := s.cli.Do(ctx, &api.Request{
		Method: http.MethodGet,
		Path:   "chats/" + strconv.FormatInt(chatID, 10) + "/messages",
		Query:  query,
	})
	if err != nil {
		s.notify("error.generic")
		return nil
	}
	var messages []models.Message
	if err := resp.Decode(&messages); err != nil {
		s.notify("error.generic")
		return nil
	}

	s.mu.Lock()
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			s.chats[i].Messages = append(s.chats[i].Messages, messages...)
			break
		}
	}
	s.mu.Unlock()

	return messages
}

// Delete removes the chat on the server and locally.
func (s *Service) Delete(ctx context.Context, chatID int64) bool {
	_, err := s.cli.Do(ctx, &api.Request{
		Method: http.MethodDelete,
		Path:   "chats/" + strconv.FormatInt(chatID, 10),
	})
	if err != nil {
		s.notify("error.generic")
		return false
	}

	s.mu.Lock()
	var name string
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			name = s.chats[i].Name
			s.chats = append(s.chats[:i], s.chats[i+1:]...)
			break
		}
	}
	if s.current != nil && s.current.ID == chatID {
		s.current = nil
	}
	s.mu.Unlock()

	if text, err := s.loc.GetWithArgs(s.lang, "chat.deleted", map[string]string{"name": name}); err == nil {
		s.notifier.Notify(text)
	}
	return true
}

// SetCurrent marks the chat with the given id as open.
func (s *Service) SetCurrent(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.chats {
		if s.chats[i].ID == chatID {
			s.current = &s.chats[i]
			return
		}
	}
}

// Add appends a freshly delivered message to its chat.
func (s *Service) Add(message models.Message, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.chats {
		if s.chats[i].ID == chatID {
			s.chats[i].Messages = append(s.chats[i].Messages, message)
			return
		}
	}
}

func (s *Service) Current() *models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) Chats() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chats
}

func previewOf(chat *models.Chat) *models.PreviewMessage {
	if len(chat.Messages) == 0 {
		return nil
	}
	last := chat.Messages[len(chat.Messages)-1]
	return &models.PreviewMessage{
		Content:   last.Content,
		CreatedAt: last.CreatedAt,
		IsRead:    last.IsRead,
	}
}

func (s *Service) notify(id string) {
	s.notifier.Notify(s.loc.MustGet(s.lang, id))
}
