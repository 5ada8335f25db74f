// Package bot implements the conversation state machine: access gating,
// registration, admin prompts, report answering, menu dispatch, document
// navigation and the AI fallback, in strict priority order per message.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/disk"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/genai"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/knowledge"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/messaging"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/reports"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/search"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/session"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/store"
)

// queueDepth bounds the per-chat update backlog before the reader blocks.
const queueDepth = 32

// errorReply is the generic apology shown when an adapter call fails.
const errorReply = "Произошла ошибка. Попробуйте ещё раз."

// Bot wires the adapters together and handles inbound updates.
type Bot struct {
	store    store.Store
	sessions *session.Store
	msg      messaging.Service
	ai       genai.ClientInterface
	disk     disk.ClientInterface
	search   search.ClientInterface
	facts    *knowledge.Cache
	reports  *reports.Service

	actions map[string]menuAction

	mu     sync.Mutex
	queues map[int64]chan messaging.Update
	wg     sync.WaitGroup
}

// New creates a Bot over the given adapters.
func New(st store.Store, sessions *session.Store, msg messaging.Service, ai genai.ClientInterface, dsk disk.ClientInterface, srch search.ClientInterface, facts *knowledge.Cache, rep *reports.Service) *Bot {
	b := &Bot{
		store:    st,
		sessions: sessions,
		msg:      msg,
		ai:       ai,
		disk:     dsk,
		search:   srch,
		facts:    facts,
		reports:  rep,
		queues:   make(map[int64]chan messaging.Update),
	}
	b.actions = b.menuActions()
	return b
}

// Run consumes transport updates until ctx is cancelled. Updates for the
// same chat are handled in arrival order; distinct chats run
// concurrently on their own worker goroutines.
func (b *Bot) Run(ctx context.Context) {
	slog.Info("Bot update loop started")
	for {
		select {
		case <-ctx.Done():
			b.drain()
			slog.Info("Bot update loop stopped")
			return
		case upd, ok := <-b.msg.Updates():
			if !ok {
				b.drain()
				slog.Info("Bot update channel closed")
				return
			}
			b.enqueue(ctx, upd)
		}
	}
}

// enqueue routes the update to its chat's worker, creating one lazily.
func (b *Bot) enqueue(ctx context.Context, upd messaging.Update) {
	b.mu.Lock()
	queue, ok := b.queues[upd.ChatID]
	if !ok {
		queue = make(chan messaging.Update, queueDepth)
		b.queues[upd.ChatID] = queue
		b.wg.Add(1)
		go b.worker(ctx, queue)
	}
	b.mu.Unlock()

	select {
	case queue <- upd:
	case <-ctx.Done():
	}
}

func (b *Bot) worker(ctx context.Context, queue chan messaging.Update) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-queue:
			b.Handle(ctx, upd)
		}
	}
}

// drain waits for in-flight handlers to finish.
func (b *Bot) drain() {
	b.wg.Wait()
}

// Handle runs one update through the priority chain.
func (b *Bot) Handle(ctx context.Context, upd messaging.Update) {
	slog.Debug("Handling update", "chatID", upd.ChatID, "userID", upd.UserID, "callback", upd.Callback != "")

	isAdmin, err := b.store.IsAdmin(upd.UserID)
	if err != nil {
		slog.Error("Admin lookup failed", "error", err, "userID", upd.UserID)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	isUser, err := b.store.IsUser(upd.UserID)
	if err != nil {
		slog.Error("User lookup failed", "error", err, "userID", upd.UserID)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	if !isAdmin && !isUser {
		slog.Info("Access denied", "userID", upd.UserID, "chatID", upd.ChatID)
		b.reply(ctx, upd.ChatID, fmt.Sprintf("Доступ запрещён. Ваш ID: %d. Обратитесь к администратору.", upd.UserID))
		return
	}

	sess := b.sessions.Get(upd.ChatID)

	profile, err := b.store.GetProfile(upd.UserID)
	if err != nil {
		slog.Error("Profile lookup failed", "error", err, "userID", upd.UserID)
		b.reply(ctx, upd.ChatID, errorReply)
		return
	}
	if profile == nil || !profile.Complete() {
		b.handleRegistration(ctx, sess, upd, profile, isAdmin)
		return
	}

	if upd.Callback != "" {
		b.handleCallback(ctx, sess, upd, isAdmin)
		return
	}
	if upd.Document != nil {
		b.handleDocumentUpload(ctx, sess, upd, isAdmin)
		return
	}

	if models.IsPromptState(sess.State) {
		b.handlePrompt(ctx, sess, upd, isAdmin)
		return
	}
	if sess.State == models.StateAwaitingReportAnswer {
		b.handleReportAnswer(ctx, sess, upd, isAdmin)
		return
	}

	text := strings.TrimSpace(upd.Text)
	if action, ok := b.actions[text]; ok {
		if action.adminOnly && !isAdmin {
			// Denial leaves the current state untouched.
			b.reply(ctx, upd.ChatID, "Эта команда доступна только администраторам.")
			b.logExchange(upd.UserID, text, "denied")
			return
		}
		action.handler(ctx, sess, upd, isAdmin)
		return
	}

	if sess.State == models.StateBrowsingDocs {
		if b.handleDocsText(ctx, sess, upd, isAdmin) {
			return
		}
		// Unmatched text exits navigation silently and falls through.
		sess.Reset()
	}

	b.answerAI(ctx, sess, upd)
}

// reply sends a plain message, logging rather than propagating failures.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.msg.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("Send failed", "error", err, "chatID", chatID)
	}
}

// replyKeyboard sends a message with a reply keyboard, fail-soft.
func (b *Bot) replyKeyboard(ctx context.Context, chatID int64, text string, keyboard messaging.ReplyKeyboard) {
	if err := b.msg.SendReplyKeyboard(ctx, chatID, text, keyboard); err != nil {
		slog.Error("Keyboard send failed", "error", err, "chatID", chatID)
	}
}

// logExchange appends to the request audit log, fail-soft.
func (b *Bot) logExchange(userID int64, request, response string) {
	if err := b.store.LogRequest(userID, request, response); err != nil {
		slog.Error("Request log append failed", "error", err, "userID", userID)
	}
}
