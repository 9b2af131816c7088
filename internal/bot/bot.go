// Package bot defines the transport-neutral shape of chat updates and
// replies, and the Dispatcher that feeds updates to a Handler.
package bot

import (
	"context"
	"strings"
)

// Bot names. The buyer-facing bot and the operator bot are separate
// identities with separate queues and outboxes.
const (
	Shop  = "shop"
	Admin = "admin"
)

// User is the sender of an update.
type User struct {
	ID        int64  `json:"id" binding:"required"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Update is one inbound event: a text message, a button callback or a
// web app submission. Exactly one of Text, Callback and WebAppData is
// expected to be set.
type Update struct {
	ID         string `json:"id"`
	ChatID     int64  `json:"chatId" binding:"required"`
	From       User   `json:"from" binding:"required"`
	Text       string `json:"text"`
	Callback   string `json:"callback"`
	WebAppData string `json:"webAppData"`
}

// Button is one inline keyboard button. Data, URL and WebAppURL are
// mutually exclusive.
type Button struct {
	Text      string `json:"text"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
	WebAppURL string `json:"webAppUrl,omitempty"`
}

// Reply is one outbound message.
type Reply struct {
	Text     string     `json:"text"`
	PhotoURL string     `json:"photoUrl,omitempty"`
	Buttons  [][]Button `json:"buttons,omitempty"`
}

// Text builds a plain reply.
func Text(text string, rows ...[]Button) Reply {
	return Reply{Text: text, Buttons: rows}
}

// Row groups buttons into one keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Callback builds a button that posts data back as a callback update.
func Callback(text, data string) Button {
	return Button{Text: text, Data: data}
}

// Link builds a button that opens url.
func Link(text, url string) Button {
	return Button{Text: text, URL: url}
}

// WebApp builds a button that opens url as an embedded web app.
func WebApp(text, url string) Button {
	return Button{Text: text, WebAppURL: url}
}

// Handler turns one update into the replies for its chat.
type Handler interface {
	Handle(ctx context.Context, u Update) ([]Reply, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, u Update) ([]Reply, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, u Update) ([]Reply, error) {
	return f(ctx, u)
}

// Sender delivers a reply to a chat.
//
//go:generate mockgen -destination=mocks/mock_sender.go -package=mocks github.com/01moynul/tg-storefront/internal/bot Sender
type Sender interface {
	Send(ctx context.Context, chatID int64, r Reply) error
}

// Command splits "/name@bot args" into its lowercase name and the trimmed
// argument string. ok is false when text is not a command.
func Command(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
