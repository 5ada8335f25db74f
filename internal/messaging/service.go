// Package messaging provides the chat transport abstraction and its
// Telegram implementation.
package messaging

import "context"

// Update is one inbound transport event: a text message, a button
// callback, or a document upload. Exactly one of Text, Callback or
// Document is meaningful per update.
type Update struct {
	ChatID   int64
	UserID   int64
	Text     string
	Callback string // opaque callback token ("action:index"), "" if none
	Document *Document
}

// Document describes an inbound file attachment.
type Document struct {
	FileID   string
	FileName string
	Size     int64
}

// ReplyKeyboard is a flat custom keyboard: rows of button labels.
type ReplyKeyboard [][]string

// InlineButton is one inline-keyboard button: visible label plus an
// opaque callback token.
type InlineButton struct {
	Label string
	Data  string
}

// InlineKeyboard is rows of inline buttons attached to a message.
type InlineKeyboard [][]InlineButton

// Service defines a pluggable message delivery abstraction.
// It supports sending messages and keyboards, fetching inbound
// documents, and provides a channel of incoming updates.
type Service interface {
	// SendMessage sends a plain-text message to a chat.
	SendMessage(ctx context.Context, chatID int64, text string) error

	// SendReplyKeyboard sends a message with a custom reply keyboard.
	SendReplyKeyboard(ctx context.Context, chatID int64, text string, keyboard ReplyKeyboard) error

	// SendInlineKeyboard sends a message with inline buttons.
	SendInlineKeyboard(ctx context.Context, chatID int64, text string, keyboard InlineKeyboard) error

	// SendDocumentURL sends a document to a chat by remote URL.
	SendDocumentURL(ctx context.Context, chatID int64, name, url string) error

	// FetchDocument downloads the content of an inbound attachment.
	FetchDocument(ctx context.Context, fileID string) ([]byte, error)

	// Start begins receiving updates.
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Updates returns the channel of incoming updates.
	Updates() <-chan Update
}
