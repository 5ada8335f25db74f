package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/knowledge"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/messaging"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/session"
)

// systemPrompt is the pinned head of every chat history.
const systemPrompt = `Вы — полезный чат-бот, который логически анализирует всю историю переписки, чтобы давать последовательные ответы.
Обязательно используй актуальные данные из поиска в истории сообщений для ответов на вопросы о фактах, организациях или событиях.
Если данные из поиска доступны, основывайся только на них и отвечай подробно, но кратко.
Если данных нет, используй свои знания и базу знаний, предоставленную системой.
Не упоминай процесс поиска, источники или фразы вроде "не знаю" или "уточните".
Всегда учитывай полный контекст разговора.
Отвечай кратко, по делу, на русском языке, без лишних объяснений.`

// aiErrorReply is shown when no model produced a completion.
const aiErrorReply = "Не удалось получить ответ. Попробуйте ещё раз позже."

// answerAI handles a message no earlier stage claimed: ground the query
// with ranked facts, recent facts on an organization question, or a web
// search extract, then complete over the rolling history. The exchange
// is logged regardless of outcome.
func (b *Bot) answerAI(ctx context.Context, sess *session.Session, upd messaging.Update) {
	query := strings.TrimSpace(upd.Text)
	if query == "" {
		return
	}
	sess.SetSystem(systemPrompt)

	if ranked := knowledge.Rank(query, b.facts.Facts()); len(ranked) > 0 {
		sess.Append(models.RoleSystem, "Отвечай, опираясь только на эти факты из базы знаний:\n"+bulleted(ranked))
		slog.Debug("Query grounded by ranked facts", "facts", len(ranked))
	} else if knowledge.HasAboutTrigger(query) {
		recent := b.facts.Recent(knowledge.TopK)
		if len(recent) > 0 {
			texts := make([]string, len(recent))
			for i, f := range recent {
				texts[i] = f.Text
			}
			sess.Append(models.RoleSystem, "Последние факты из базы знаний об организации:\n"+bulleted(texts))
			slog.Debug("Query grounded by recent facts", "facts", len(recent))
		}
	} else {
		results := b.search.Search(ctx, query)
		sess.Append(models.RoleSystem, "Актуальные данные из поиска:\n"+results)
		slog.Debug("Query grounded by web search")
	}

	sess.Append(models.RoleUser, query)
	reply, err := b.ai.Complete(ctx, sess.History)
	if err != nil {
		slog.Error("Completion failed", "error", err, "userID", upd.UserID)
		b.reply(ctx, upd.ChatID, aiErrorReply)
		b.logExchange(upd.UserID, query, aiErrorReply)
		return
	}

	sess.Append(models.RoleAssistant, reply)
	b.reply(ctx, upd.ChatID, reply)
	b.logExchange(upd.UserID, query, reply)
}

func bulleted(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return sb.String()
}
