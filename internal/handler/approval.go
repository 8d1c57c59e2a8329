package handler

import (
	"context"
	"errors"
	"fmt"
	"hr-time-bot/internal/command"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/service"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// askManagerEarlyLeave отправляет руководителям запрос на ранний уход
func (h *Handler) askManagerEarlyLeave(ctx context.Context, chatID, userID int64) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	snap, err := h.sessions.Status(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	w, working := snap.Session.(*models.Working)
	if !working {
		h.replyError(chatID, service.ErrNotWorking)
		return
	}

	// запрос относится к дню, в который начата сессия
	date := w.Start.In(h.config.Timezone).Format(time.DateOnly)
	if !h.notifyManagers(ctx, chatID, user, models.RequestEarlyLeave, models.RequestPayload{Date: date}) {
		return
	}

	missing := max(h.config.MinWorkSeconds-snap.WorkedSeconds, 0)
	h.reply(chatID, fmt.Sprintf("📨 Запрос на ранний уход отправлен руководителю.\nНе хватает: %s. Рабочий день продолжается до решения.",
		service.FormatSeconds(missing)))
}

func (h *Handler) requestRemoteToday(ctx context.Context, chatID, userID int64) {
	h.createRequest(ctx, chatID, userID, models.RequestRemoteWork, h.clock.Now())
}

// createRequest запрос на отгул или удаленку на дату
func (h *Handler) createRequest(ctx context.Context, chatID, userID int64, reqType models.RequestType, date time.Time) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	payload := models.RequestPayload{Date: date.Format(time.DateOnly)}
	if !h.notifyManagers(ctx, chatID, user, reqType, payload) {
		return
	}

	h.reply(chatID, fmt.Sprintf("📨 Запрос «%s» на %s отправлен руководителю.", reqType.Title(), date.Format("02.01.2006")))
}

// notifyManagers создает запрос и рассылает карточки. Ошибку сообщает пользователю сам.
func (h *Handler) notifyManagers(ctx context.Context, chatID int64, user *models.User, reqType models.RequestType, payload models.RequestPayload) bool {
	req, recipients, err := h.approvals.CreateForRequester(ctx, user, reqType, payload)
	if err != nil {
		// Уведомление о банке необязательно: без руководителя просто работаем
		if reqType.IsNotice() && errors.Is(err, service.ErrNoRecipients) {
			return true
		}
		h.replyError(chatID, err)
		return false
	}

	if h.sendRequestCards(ctx, req, recipients, user) {
		return true
	}

	// Карточку никто не получил: решать некому, запрос снимается
	if _, err := h.approvals.Expire(ctx, req.ID); err != nil {
		h.logger.WithError(err).WithField("request_id", req.ID).Error("Failed to expire undelivered request")
	}
	if reqType.IsNotice() {
		return true
	}
	h.reply(chatID, "❌ Не удалось доставить запрос руководителю, попробуйте позже")
	return false
}

// sendRequestCards отправляет карточку каждому адресату и запоминает id сообщений.
// false - ни одна карточка не доставлена.
func (h *Handler) sendRequestCards(ctx context.Context, req *models.ApprovalRequest, recipients []int64, requester *models.User) bool {
	text := requestCardText(req, requester)
	markup := requestKeyboard(req)

	sent := make(map[int64]int, len(recipients))
	for _, chatID := range recipients {
		msg, err := h.send(chatID, text, markup)
		if err != nil {
			continue
		}
		sent[chatID] = msg.MessageID
	}

	if len(sent) == 0 {
		h.logger.WithField("request_id", req.ID).Warn("Request card was not delivered to any manager")
		return false
	}

	if err := h.approvals.AttachMessages(ctx, req, sent); err != nil {
		h.logger.WithError(err).WithField("request_id", req.ID).Error("Failed to attach request messages")
	}
	return true
}

func requestKeyboard(req *models.ApprovalRequest) tgbotapi.InlineKeyboardMarkup {
	if req.Type.IsNotice() {
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			button("👌 Принято", command.Decide{RequestID: req.ID, Decision: service.DecisionAcknowledge}),
		))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			button("✅ Одобрить", command.Decide{RequestID: req.ID, Decision: service.DecisionApprove}),
			button("❌ Отклонить", command.Decide{RequestID: req.ID, Decision: service.DecisionDeny}),
		),
	}
	if req.Type == models.RequestEarlyLeave {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("🤝 Одобрить без долга", command.Decide{RequestID: req.ID, Decision: service.DecisionApproveForgive}),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func requestCardText(req *models.ApprovalRequest, requester *models.User) string {
	name := fmt.Sprintf("id %d", req.RequesterID)
	if requester != nil {
		name = requester.FullName
	}

	lines := []string{
		fmt.Sprintf("📨 Запрос #%d: %s", req.ID, req.Type.Title()),
		"👤 " + name,
	}
	if req.Payload.Date != "" {
		if d, err := time.Parse(time.DateOnly, req.Payload.Date); err == nil {
			lines = append(lines, "📅 "+d.Format("02.01.2006"))
		}
	}
	return strings.Join(lines, "\n")
}

func statusTitle(status models.RequestStatus) string {
	switch status {
	case models.RequestApproved:
		return "✅ Одобрено"
	case models.RequestDenied:
		return "❌ Отклонено"
	case models.RequestAcknowledged:
		return "👌 Принято к сведению"
	case models.RequestExpired:
		return "⌛ Неактуально: день уже закрыт"
	case models.RequestPending:
		return "⏳ Ожидает решения"
	}
	return string(status)
}

// decide применяет решение руководителя и сверяет карточки у обоих руководителей
func (h *Handler) decide(ctx context.Context, callback *tgbotapi.CallbackQuery, c command.Decide) {
	chatID := callback.Message.Chat.ID
	deciderID := callback.From.ID

	res, err := h.approvals.Decide(ctx, c.RequestID, deciderID, c.Decision)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	req := res.Request
	requester, err := h.users.Get(ctx, req.RequesterID)
	if err != nil && !errors.Is(err, service.ErrUserNotRegistered) {
		h.logger.WithError(err).WithField("request_id", req.ID).Warn("Failed to load requester")
	}

	decider := callback.From.FirstName
	if d, err := h.users.Get(ctx, deciderID); err == nil {
		decider = d.FullName
	}

	if res.Outcome == service.OutcomeAlreadyResolved {
		if req.Status == models.RequestExpired {
			h.editCard(chatID, callback.Message.MessageID, requestCardText(req, requester)+"\n\n"+statusTitle(req.Status))
			h.reply(chatID, "ℹ️ Запрос больше не актуален: сотрудник уже закрыл этот день")
			return
		}
		h.editCard(chatID, callback.Message.MessageID, requestCardText(req, requester)+"\n\n"+statusTitle(req.Status)+" ранее")
		h.reply(chatID, "ℹ️ По этому запросу уже принято решение: "+statusTitle(req.Status))
		return
	}

	final := fmt.Sprintf("%s\n\n%s (%s)", requestCardText(req, requester), statusTitle(req.Status), decider)
	h.reconcileCards(req, final)

	h.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"status":     req.Status,
		"decider":    deciderID,
	}).Info("Request cards reconciled")

	if res.Close != nil {
		h.reconcileExpired(res.Close.Expired, requester)
	}
	h.notifyRequester(req, res, decider)
}

// reconcileExpired убирает кнопки с карточек запросов, снятых закрытием дня
func (h *Handler) reconcileExpired(reqs []models.ApprovalRequest, requester *models.User) {
	for i := range reqs {
		req := &reqs[i]
		h.reconcileCards(req, requestCardText(req, requester)+"\n\n"+statusTitle(req.Status))
	}
}

// reconcileCards заменяет карточку у каждого адресата итоговым текстом без кнопок
func (h *Handler) reconcileCards(req *models.ApprovalRequest, text string) {
	pairs := []struct {
		chatID *int64
		msgID  *int
	}{
		{req.Manager1ChatID, req.Manager1MessageID},
		{req.Manager2ChatID, req.Manager2MessageID},
	}

	for _, p := range pairs {
		if p.chatID == nil || p.msgID == nil {
			continue
		}
		h.editCard(*p.chatID, *p.msgID, text)
	}
}

func (h *Handler) editCard(chatID int64, messageID int, text string) {
	h.request(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (h *Handler) notifyRequester(req *models.ApprovalRequest, res *service.DecideResult, decider string) {
	if req.Type.IsNotice() {
		h.reply(req.RequesterID, fmt.Sprintf("👌 Руководитель (%s) принял к сведению работу в банк времени", decider))
		return
	}

	lines := []string{fmt.Sprintf("✅ %s: одобрено", req.Type.Title())}
	if req.Status == models.RequestDenied {
		lines[0] = fmt.Sprintf("❌ %s: отклонено", req.Type.Title())
	}
	lines = append(lines, "👤 Решение принял: "+decider)

	switch {
	case res.Close != nil:
		lines = append(lines, "", "🏁 Рабочий день закрыт", formatWorkLog(res.Close.Entry))
		if res.Close.Debt != nil {
			lines = append(lines, "🧾 Долг: "+service.FormatSeconds(res.Close.Debt.AmountSeconds))
		} else {
			lines = append(lines, "🤝 Без долга")
		}
	case res.CloseSkipped == service.CloseSkippedOnBreak:
		lines = append(lines, "☕ Вы на перерыве, день не закрыт. Завершите перерыв и закройте день снова")
	case res.CloseSkipped == service.CloseSkippedOtherDay:
		lines = append(lines, "ℹ️ Запрос был за другой день, текущий рабочий день продолжается")
	case req.Type == models.RequestEarlyLeave && req.Status == models.RequestApproved:
		lines = append(lines, "ℹ️ Рабочий день уже не идет, закрывать нечего")
	case res.Absence != nil:
		lines = append(lines, "📅 "+service.FormatAbsence(res.Absence))
	case req.Type == models.RequestEarlyLeave && req.Status == models.RequestDenied:
		lines = append(lines, "▶️ Рабочий день продолжается")
	}

	h.reply(req.RequesterID, strings.Join(lines, "\n"))
}
