package handler

import (
	"context"
	"fmt"
	"hr-time-bot/internal/command"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func button(text string, cmd command.Command) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, cmd.Data())
}

// dayState что известно о сегодняшнем дне пользователя без активной сессии
type dayState struct {
	workday bool
	closed  bool
	absence *models.AbsencePeriod
}

// startError почему сегодня нельзя начать рабочий день
func (d dayState) startError() error {
	switch {
	case d.absence != nil:
		return fmt.Errorf("%w: %s", service.ErrOnAbsence, service.FormatAbsence(d.absence))
	case d.closed:
		return service.ErrWorkdayAlreadyClosed
	}
	return nil
}

func (d dayState) note() string {
	switch {
	case d.absence != nil:
		return "🏖️ Сегодня: " + service.FormatAbsence(d.absence)
	case d.closed:
		return "✅ Рабочий день на сегодня завершен"
	case !d.workday:
		return "📅 Сегодня нерабочий день"
	}
	return ""
}

// dayState читает календарь, отсутствия и журнал. Сбой чтения не прячет кнопки.
func (h *Handler) dayState(ctx context.Context, userID int64) dayState {
	now := h.clock.Now()
	day := dayState{workday: h.calendar.IsWorkday(now)}

	var err error
	if day.absence, err = h.absences.Current(ctx, userID, now); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load current absence")
	}
	if day.closed, err = h.sessions.WorkdayClosed(ctx, userID); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Failed to check closed workday")
	}
	return day
}

// mainMenu кнопки зависят от состояния сессии, роли и сегодняшнего дня.
// day учитывается только без активной сессии.
func (h *Handler) mainMenu(user *models.User, sess models.Session, day dayState) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	switch s := sess.(type) {
	case nil:
		if day.workday && day.startError() == nil {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button("🏢 Начать в офисе", command.StartWork{}),
				button("🏠 Начать удаленно", command.StartWork{Remote: true}),
			))
		}
		if day.absence == nil {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button("🧾 Отработать долг", command.StartExtraWork{Kind: models.StatusClearingDebt}),
				button("🏦 Работа в банк", command.StartExtraWork{Kind: models.StatusBankingTime}),
			))
		}
	case *models.Working:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("☕ Перерыв", command.StartBreak{}),
			button("🏁 Завершить день", command.EndWork{}),
		))
	case *models.OnBreak:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("▶️ Вернуться к работе", command.EndBreak{}),
		))
	case *models.ExtraWork:
		title := "🏁 Закончить отработку"
		if s.Kind == models.StatusBankingTime {
			title = "🏁 Закончить работу в банк"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(title, command.EndExtraWork{})))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("📊 Статус", command.ShowStatus{}),
		button("🏦 Банк времени", command.ShowTimeBank{}),
		button("📈 Мой отчет", command.MyReport{}),
	))

	if user.Role.CanDecide() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("👥 Команда сейчас", command.TeamStatus{}),
			button("📋 Отчет по команде", command.TeamReport{}),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) sendMainMenu(ctx context.Context, chatID, userID int64, text string) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	snap, err := h.sessions.Status(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	var day dayState
	if snap.IsIdle() {
		day = h.dayState(ctx, userID)
		if note := day.note(); note != "" {
			text += "\n\n" + note
		}
	}

	_, _ = h.send(chatID, text, h.mainMenu(user, snap.Session, day))
}
