package handler

import (
	"context"
	"fmt"
	"hr-time-bot/internal/command"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/service"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// startWork начинает рабочий день; удаленно - только при согласованной удаленке
func (h *Handler) startWork(ctx context.Context, chatID, userID int64, remote bool) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	if err := h.dayState(ctx, userID).startError(); err != nil {
		h.replyError(chatID, err)
		return
	}

	now := h.clock.Now()
	if remote && !h.remoteAllowed(ctx, chatID, user, now) {
		return
	}

	w, err := h.sessions.StartWork(ctx, userID, remote)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	place := "в офисе"
	if w.Remote {
		place = "удаленно"
	}

	text := fmt.Sprintf(`✅ Рабочий день начат %s

⏰ Время начала: %s
⏳ Норма: %s
☕ Лимит перерывов: %s`,
		place,
		w.Start.Format("15:04"),
		service.FormatSeconds(h.config.MinWorkSeconds),
		service.FormatSeconds(h.config.DailyBreakLimitSeconds),
	)
	_, _ = h.send(chatID, text, h.mainMenu(user, w, dayState{}))
}

func (h *Handler) remoteAllowed(ctx context.Context, chatID int64, user *models.User, now time.Time) bool {
	switch user.Role {
	case models.RoleManager, models.RoleAdmin:
		return true
	case models.RoleEmployee:
	}

	approved, err := h.approvals.HasApproved(ctx, user.ID, models.RequestRemoteWork, now.Format(time.DateOnly))
	if err != nil {
		h.replyError(chatID, err)
		return false
	}
	if approved {
		return true
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		button("📨 Запросить удаленку на сегодня", command.RequestRemoteWork{}),
	))
	_, _ = h.send(chatID, "❌ Удаленная работа на сегодня не согласована с руководителем.", markup)
	return false
}

func (h *Handler) startBreak(ctx context.Context, chatID, userID int64) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	b, err := h.sessions.StartBreak(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	left := h.config.DailyBreakLimitSeconds - b.BreakSeconds
	text := fmt.Sprintf("☕ Перерыв начат в %s\nОсталось на перерывы: %s",
		b.BreakStart.Format("15:04"), service.FormatSeconds(left))
	_, _ = h.send(chatID, text, h.mainMenu(user, b, dayState{}))
}

func (h *Handler) endBreak(ctx context.Context, chatID, userID int64) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	w, err := h.sessions.EndBreak(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	left := max(h.config.DailyBreakLimitSeconds-w.BreakSeconds, 0)
	text := fmt.Sprintf("▶️ С возвращением!\nПерерывы за день: %s, осталось: %s",
		service.FormatSeconds(w.BreakSeconds), service.FormatSeconds(left))
	if w.BreakSeconds > h.config.DailyBreakLimitSeconds {
		text += "\n⚠️ Лимит перерывов превышен"
	}
	_, _ = h.send(chatID, text, h.mainMenu(user, w, dayState{}))
}

// endWork закрывает день или предлагает варианты при недоработке
func (h *Handler) endWork(ctx context.Context, chatID, userID int64) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	res, err := h.sessions.EndWork(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	if res.NeedsEarlyLeaveDecision {
		text := fmt.Sprintf(`⚠️ Норма еще не выполнена

⏰ Отработано: %s
➖ Не хватает: %s
🏦 В банке времени: %s

Как закрыть день?`,
			service.FormatSeconds(res.WorkedSeconds),
			service.FormatSeconds(res.Shortfall),
			service.FormatSeconds(user.TimeBankSeconds),
		)
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(button("🏦 Списать из банка", command.CloseEarlyUsingBank{})),
			tgbotapi.NewInlineKeyboardRow(button("📨 Спросить руководителя", command.CloseEarlyAskManager{})),
			tgbotapi.NewInlineKeyboardRow(button("▶️ Продолжить работу", command.ShowMenu{})),
		)
		_, _ = h.send(chatID, text, markup)
		return
	}

	h.sendClosed(ctx, chatID, user, res.Closed)
}

func (h *Handler) closeEarlyUsingBank(ctx context.Context, chatID, userID int64) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	closed, err := h.sessions.CloseEarlyUsingBank(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	h.sendClosed(ctx, chatID, user, closed)
}

func (h *Handler) sendClosed(ctx context.Context, chatID int64, user *models.User, closed *service.CloseResult) {
	h.reconcileExpired(closed.Expired, user)

	lines := []string{
		"✅ Рабочий день завершен",
		"",
		formatWorkLog(closed.Entry),
	}
	if closed.BreakCredited > 0 {
		lines = append(lines, "🏦 Неиспользованный перерыв в банк: +"+service.FormatSeconds(closed.BreakCredited))
	}
	if closed.BankDebited > 0 {
		lines = append(lines, "🏦 Списано из банка: "+service.FormatSeconds(closed.BankDebited))
	}
	if closed.Debt != nil {
		lines = append(lines, "🧾 Долг: "+service.FormatSeconds(closed.Debt.AmountSeconds))
	}

	_, _ = h.send(chatID, strings.Join(lines, "\n"), h.mainMenu(user, nil, h.dayState(ctx, user.ID)))
}

func formatWorkLog(e *models.WorkLogEntry) string {
	return fmt.Sprintf(`⏰ %s - %s
⏳ Отработано: %s
☕ Перерывы: %s`,
		e.StartTime.Format("15:04"),
		e.EndTime.Format("15:04"),
		service.FormatSeconds(e.TotalWorkSeconds),
		service.FormatSeconds(e.TotalBreakSeconds),
	)
}

func (h *Handler) startExtraWork(ctx context.Context, chatID, userID int64, kind models.SessionStatus) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	e, err := h.sessions.StartExtraWork(ctx, userID, kind)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	text := fmt.Sprintf("🧾 Отработка долга начата в %s", e.Start.Format("15:04"))
	if kind == models.StatusBankingTime {
		text = fmt.Sprintf("🏦 Работа в банк времени начата в %s", e.Start.Format("15:04"))
		h.notifyManagers(ctx, chatID, user, models.RequestBankingNotice, models.RequestPayload{Date: e.Start.Format(time.DateOnly)})
	}

	_, _ = h.send(chatID, text, h.mainMenu(user, e, dayState{}))
}

func (h *Handler) endExtraWork(ctx context.Context, chatID, userID int64) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	res, err := h.sessions.EndExtraWork(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	var text string
	switch res.Kind {
	case models.StatusClearingDebt:
		text = fmt.Sprintf("✅ Отработка завершена\n\n⏳ Отработано: %s\n🧾 Погашено долга: %s\n🧾 Остаток долга за месяц: %s",
			service.FormatSeconds(res.ElapsedSeconds),
			service.FormatSeconds(res.ClearedSeconds),
			service.FormatSeconds(res.RemainingDebt))
	case models.StatusBankingTime:
		text = fmt.Sprintf("✅ Работа в банк завершена\n\n🏦 Зачислено: +%s",
			service.FormatSeconds(res.BankedSeconds))
	}

	_, _ = h.send(chatID, text, h.mainMenu(user, nil, h.dayState(ctx, user.ID)))
}

func (h *Handler) showStatus(ctx context.Context, chatID, userID int64) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	snap, err := h.sessions.Status(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	var lines []string
	var day dayState
	switch s := snap.Session.(type) {
	case nil:
		lines = append(lines, "⚪ Сейчас вы не на работе")
		day = h.dayState(ctx, userID)
		if note := day.note(); note != "" {
			lines = append(lines, note)
		}
	case *models.Working:
		lines = append(lines,
			fmt.Sprintf("🟢 Работаете с %s (%s)", s.Start.Format("15:04"), placeTitle(s.Remote)),
			"⏳ Отработано: "+service.FormatSeconds(snap.WorkedSeconds),
			"☕ Перерывы: "+service.FormatSeconds(snap.BreakUsedSeconds)+", осталось "+service.FormatSeconds(snap.BreakRemainingSeconds),
		)
	case *models.OnBreak:
		lines = append(lines,
			fmt.Sprintf("🟡 На перерыве с %s (%s)", s.BreakStart.Format("15:04"), service.FormatSeconds(snap.CurrentBreakSeconds)),
			"⏳ Отработано: "+service.FormatSeconds(snap.WorkedSeconds),
			"☕ Перерывы: "+service.FormatSeconds(snap.BreakUsedSeconds)+", осталось "+service.FormatSeconds(snap.BreakRemainingSeconds),
		)
	case *models.ExtraWork:
		title := "🧾 Отработка долга"
		if s.Kind == models.StatusBankingTime {
			title = "🏦 Работа в банк времени"
		}
		lines = append(lines, fmt.Sprintf("%s с %s (%s)", title, s.Start.Format("15:04"), service.FormatSeconds(snap.ElapsedSeconds)))
	}

	lines = append(lines,
		"",
		"🏦 Банк времени: "+service.FormatSeconds(snap.BankSeconds),
		"🧾 Долг за месяц: "+service.FormatSeconds(snap.PendingDebtSeconds),
	)

	_, _ = h.send(chatID, strings.Join(lines, "\n"), h.mainMenu(user, snap.Session, day))
}

func (h *Handler) showTimeBank(ctx context.Context, chatID, userID int64) {
	snap, err := h.sessions.Status(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	h.reply(chatID, fmt.Sprintf("🏦 Банк времени: %s\n🧾 Непогашенный долг за месяц: %s",
		service.FormatSeconds(snap.BankSeconds), service.FormatSeconds(snap.PendingDebtSeconds)))
}

func placeTitle(remote bool) string {
	if remote {
		return "удаленно"
	}
	return "в офисе"
}
