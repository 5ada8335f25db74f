package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/geo"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/messaging"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/session"
)

// handleRegistration walks a known principal without a complete profile
// through the fixed step order: full name, federal district, region,
// display name. Each step persists immediately, so a restart resumes at
// the first missing field. Out-of-vocabulary picks re-prompt the same
// step with the same keyboard.
func (b *Bot) handleRegistration(ctx context.Context, sess *session.Session, upd messaging.Update, profile *models.Profile, isAdmin bool) {
	if profile == nil {
		profile = &models.Profile{UserID: upd.UserID}
	}
	text := strings.TrimSpace(upd.Text)

	switch sess.State {
	case models.StateAwaitingFullName:
		if text == "" {
			b.reply(ctx, upd.ChatID, "Введите ваше ФИО.")
			return
		}
		profile.FullName = text
		if err := b.store.SaveProfile(*profile); err != nil {
			slog.Error("Profile save failed", "error", err, "userID", upd.UserID)
			b.reply(ctx, upd.ChatID, errorReply)
			return
		}
		sess.State = models.StateAwaitingDistrict
		b.replyKeyboard(ctx, upd.ChatID, "Выберите ваш федеральный округ:", districtKeyboard())

	case models.StateAwaitingDistrict:
		if !geo.IsDistrict(text) {
			b.replyKeyboard(ctx, upd.ChatID, "Выберите федеральный округ из списка:", districtKeyboard())
			return
		}
		sess.District = text
		sess.State = models.StateAwaitingRegion
		b.replyKeyboard(ctx, upd.ChatID, "Выберите ваш регион:", regionKeyboard(text))

	case models.StateAwaitingRegion:
		if !geo.IsRegionOf(sess.District, text) {
			b.replyKeyboard(ctx, upd.ChatID, "Выберите регион из списка:", regionKeyboard(sess.District))
			return
		}
		profile.Region = text
		if err := b.store.SaveProfile(*profile); err != nil {
			slog.Error("Profile save failed", "error", err, "userID", upd.UserID)
			b.reply(ctx, upd.ChatID, errorReply)
			return
		}
		// The region's document folder is created eagerly so uploads
		// and navigation find it later.
		if !b.disk.EnsureFolder(ctx, session.RootPath+text) {
			slog.Error("Region folder creation failed", "region", text)
		}
		sess.State = models.StateAwaitingDisplayName
		b.reply(ctx, upd.ChatID, "Введите отображаемое имя (как к вам обращаться):")

	case models.StateAwaitingDisplayName:
		if text == "" {
			b.reply(ctx, upd.ChatID, "Введите отображаемое имя (как к вам обращаться):")
			return
		}
		profile.DisplayName = text
		if err := b.store.SaveProfile(*profile); err != nil {
			slog.Error("Profile save failed", "error", err, "userID", upd.UserID)
			b.reply(ctx, upd.ChatID, errorReply)
			return
		}
		sess.Reset()
		slog.Info("Registration completed", "userID", upd.UserID, "region", profile.Region)
		b.replyKeyboard(ctx, upd.ChatID, "Регистрация завершена, "+profile.DisplayName+"!", mainMenuKeyboard(isAdmin))

	default:
		// First contact: resume at the first missing field.
		switch {
		case profile.FullName == "":
			sess.State = models.StateAwaitingFullName
			b.reply(ctx, upd.ChatID, "Добро пожаловать! Для начала работы пройдите регистрацию.\nВведите ваше ФИО.")
		case profile.Region == "":
			sess.State = models.StateAwaitingDistrict
			b.replyKeyboard(ctx, upd.ChatID, "Выберите ваш федеральный округ:", districtKeyboard())
		default:
			sess.State = models.StateAwaitingDisplayName
			b.reply(ctx, upd.ChatID, "Введите отображаемое имя (как к вам обращаться):")
		}
	}
}

func districtKeyboard() messaging.ReplyKeyboard {
	names := geo.DistrictNames()
	keyboard := make(messaging.ReplyKeyboard, 0, len(names))
	for _, name := range names {
		keyboard = append(keyboard, []string{name})
	}
	return keyboard
}

func regionKeyboard(district string) messaging.ReplyKeyboard {
	regions := geo.Regions(district)
	keyboard := make(messaging.ReplyKeyboard, 0, len(regions))
	for _, region := range regions {
		keyboard = append(keyboard, []string{region})
	}
	return keyboard
}
