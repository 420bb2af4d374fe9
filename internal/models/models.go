package models

import "time"

type ChatType string

const (
	ChatSavedMessages ChatType = "saved_messages"
	ChatDialogue      ChatType = "dialogue"
	ChatGroup         ChatType = "group"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
	MessageFile  MessageType = "file"
)

// TokenPair is what the token endpoints return. Both tokens are opaque
// bearer strings, persisted together.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type User struct {
	ID         int64      `json:"id"`
	Username   string     `json:"username"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	LastOnline *time.Time `json:"lastOnline"`
	IsActive   bool       `json:"isActive"`
	IsAdmin    bool       `json:"isAdmin"`
}

type Participant struct {
	ParticipantID int64 `json:"participantId"`
	IsAdmin       bool  `json:"isAdmin"`
}

type Message struct {
	ID        int64       `json:"id"`
	ChatID    int64       `json:"chatId"`
	Type      MessageType `json:"type"`
	AuthorID  int64       `json:"authorId"`
	SenderID  int64       `json:"senderId"`
	Content   string      `json:"content"`
	IsRead    bool        `json:"isRead"`
	IsEdited  bool        `json:"isEdited"`
	CreatedAt string      `json:"createdAt"`
}

// PreviewMessage is a projection of the last message in a chat,
// shown in the chat list.
type PreviewMessage struct {
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	IsRead    bool   `json:"isRead"`
}

type Chat struct {
	ID             int64           `json:"id"`
	Type           ChatType        `json:"type"`
	Name           string          `json:"name"`
	ImageURL       string          `json:"imageUrl"`
	Participants   []Participant   `json:"participants"`
	Messages       []Message       `json:"messages"`
	PreviewMessage *PreviewMessage `json:"previewMessage"`
}
