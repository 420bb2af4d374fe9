// Package server is an in-memory stand-in for the chat backend, good enough
// to develop the client against: token issue/refresh/revoke, a couple of
// seeded users and chats. State lives for the lifetime of the process.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pechorka/chatik/internal/models"
	"github.com/pechorka/chatik/pkg/casemap"
)

type account struct {
	user     models.User
	password string
}

type Server struct {
	accessTTL time.Duration

	mu       sync.Mutex
	nextID   int64
	accounts map[string]*account // by username
	access   map[string]access   // access token -> session
	refresh  map[string]int64    // refresh token -> user id
	chats    map[int64][]models.Chat
}

type access struct {
	userID    int64
	expiresAt time.Time
}

type Config struct {
	// AccessTTL bounds access token lifetime; keep it short to exercise the
	// client's refresh flow.
	AccessTTL time.Duration
}

func New(cfg Config) *Server {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 30 * time.Second
	}
	s := &Server{
		accessTTL: cfg.AccessTTL,
		nextID:    1,
		accounts:  make(map[string]*account),
		access:    make(map[string]access),
		refresh:   make(map[string]int64),
		chats:     make(map[int64][]models.Chat),
	}
	s.seed()
	return s
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", s.register)
	r.Post("/token", s.token)
	r.Post("/token/refresh", s.tokenRefresh)
	r.Post("/token/revoke", s.tokenRevoke)
	r.Get("/users/me", s.me)
	r.Get("/users/search", s.searchUsers)
	r.Get("/chats", s.listChats)
	r.Get("/chats/{chatID}/messages", s.chatMessages)
	r.Delete("/chats/{chatID}", s.deleteChat)
	return r
}

func (s *Server) seed() {
	alice := s.addAccount("alice", "correctpw", "Alice", "Liddell")
	bob := s.addAccount("bob", "hunter2", "Bob", "")

	now := time.Now().UTC().Format(time.RFC3339)
	s.chats[alice.ID] = []models.Chat{
		{
			ID:   1,
			Type: models.ChatSavedMessages,
			Participants: []models.Participant{
				{ParticipantID: alice.ID, IsAdmin: true},
			},
			Messages: []models.Message{},
		},
		{
			ID:   2,
			Type: models.ChatDialogue,
			Name: "bob",
			Participants: []models.Participant{
				{ParticipantID: alice.ID},
				{ParticipantID: bob.ID},
			},
			Messages: []models.Message{
				{ID: 1, ChatID: 2, Type: models.MessageText, AuthorID: bob.ID,
					SenderID: bob.ID, Content: "привет!", IsRead: true, CreatedAt: now},
			},
		},
	}
}

func (s *Server) addAccount(username, password, firstName, lastName string) models.User {
	user := models.User{
		ID:        s.nextID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		IsActive:  true,
	}
	s.nextID++
	s.accounts[username] = &account{user: user, password: password}
	return user
}

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Password != req.PasswordConfirm {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.accounts[req.Username]; taken {
		w.WriteHeader(http.StatusConflict)
		return
	}
	user := s.addAccount(req.Username, req.Password, "", "")
	s.chats[user.ID] = []models.Chat{}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[r.PostForm.Get("username")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if acc.password != r.PostForm.Get("password") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.mintPair(acc.user.ID))
}

func (s *Server) tokenRefresh(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[token]
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	// refresh tokens are single use
	delete(s.refresh, token)
	writeJSON(w, http.StatusOK, s.mintPair(userID))
}

func (s *Server) tokenRevoke(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.access, bearer(r))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(r); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.Lock()
	defer s.mu.Unlock()
	found := []models.User{}
	for _, acc := range s.accounts {
		if q == "" || strings.Contains(strings.ToLower(acc.user.Username), q) {
			found = append(found, acc.user)
		}
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.chats[user.ID])
}

func (s *Server) chatMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chat := range s.chats[user.ID] {
		if chat.ID != chatID {
			continue
		}
		messages := chat.Messages
		if offset, _ := strconv.Atoi(r.URL.Query().Get("offset")); offset > 0 {
			if offset > len(messages) {
				offset = len(messages)
			}
			messages = messages[offset:]
		}
		if limit, _ := strconv.Atoi(r.URL.Query().Get("limit")); limit > 0 && limit < len(messages) {
			messages = messages[:limit]
		}
		writeJSON(w, http.StatusOK, messages)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) deleteChat(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	chats := s.chats[user.ID]
	for i := range chats {
		if chats[i].ID == chatID {
			s.chats[user.ID] = append(chats[:i], chats[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) mintPair(userID int64) models.TokenPair {
	pair := models.TokenPair{
		AccessToken:  uuid.New().String(),
		RefreshToken: uuid.New().String(),
	}
	s.access[pair.AccessToken] = access{userID: userID, expiresAt: time.Now().Add(s.accessTTL)}
	s.refresh[pair.RefreshToken] = userID
	return pair
}

func (s *Server) authenticate(r *http.Request) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.access[bearer(r)]
	if !ok || time.Now().After(sess.expiresAt) {
		return models.User{}, false
	}
	for _, acc := range s.accounts {
		if acc.user.ID == sess.userID {
			return acc.user, true
		}
	}
	return models.User{}, false
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func decodeJSON(r *http.Request, v interface{}) error {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return err
	}
	return casemap.UnmarshalCamel(raw, v)
}

// writeJSON marshals v with snake_case keys, matching the real backend's
// wire convention.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := casemap.MarshalSnake(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
