package handler

import (
	"context"
	"errors"
	"hr-time-bot/internal/clock"
	"hr-time-bot/internal/command"
	"hr-time-bot/internal/config"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/service"
	"hr-time-bot/pkg/telegram"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	sender    telegram.Sender
	sessions  *service.WorkSessionService
	approvals *service.ApprovalService
	users     *service.UserService
	absences  *service.AbsenceService
	reports   *service.ReportService
	calendar  *service.CalendarService
	clock     clock.Clock
	config    *config.BotConfig
	logger    *logrus.Logger
	inFlight  sync.WaitGroup
}

func NewHandler(
	sender telegram.Sender,
	sessions *service.WorkSessionService,
	approvals *service.ApprovalService,
	users *service.UserService,
	absences *service.AbsenceService,
	reports *service.ReportService,
	calendar *service.CalendarService,
	clk clock.Clock,
	cfg *config.BotConfig,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		sender:    sender,
		sessions:  sessions,
		approvals: approvals,
		users:     users,
		absences:  absences,
		reports:   reports,
		calendar:  calendar,
		clock:     clk,
		config:    cfg,
		logger:    logger,
	}
}

// HandleUpdates обрабатывает каждое обновление в своей горутине до закрытия канала
// или отмены ctx, затем ждет незавершенные обработчики.
func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer h.inFlight.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.inFlight.Add(1)
			go func() {
				defer h.inFlight.Done()
				h.handleUpdate(ctx, update)
			}()
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("update_id", update.UpdateID).Errorf("Panic while handling update: %v", r)
		}
	}()

	// Обработка callback query (для inline кнопок)
	if update.CallbackQuery != nil {
		h.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	h.handleMessage(ctx, update.Message)
}

// handleCallbackQuery обрабатывает inline кнопки
func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Отвечаем на callback (убираем "часики" у кнопки)
	defer h.request(tgbotapi.NewCallback(callback.ID, ""))

	if callback.Message == nil || callback.From == nil {
		return
	}

	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"data":    callback.Data,
	}).Debug("Callback received")

	cmd, err := command.Parse(callback.Data)
	if err != nil {
		h.logger.WithError(err).Warn("Malformed callback data")
		h.replyError(chatID, err)
		return
	}

	switch c := cmd.(type) {
	case command.ShowMenu:
		h.sendMainMenu(ctx, chatID, userID, "Главное меню")
	case command.ShowStatus:
		h.showStatus(ctx, chatID, userID)
	case command.ShowTimeBank:
		h.showTimeBank(ctx, chatID, userID)
	case command.MyReport:
		h.sendReport(ctx, chatID, userID, "")
	case command.TeamStatus:
		h.showTeamStatus(ctx, chatID, userID)
	case command.TeamReport:
		h.showTeamReport(ctx, chatID, userID)

	case command.StartWork:
		h.startWork(ctx, chatID, userID, c.Remote)
	case command.StartBreak:
		h.startBreak(ctx, chatID, userID)
	case command.EndBreak:
		h.endBreak(ctx, chatID, userID)
	case command.EndWork:
		h.endWork(ctx, chatID, userID)
	case command.CloseEarlyUsingBank:
		h.closeEarlyUsingBank(ctx, chatID, userID)
	case command.CloseEarlyAskManager:
		h.askManagerEarlyLeave(ctx, chatID, userID)
	case command.RequestRemoteWork:
		h.requestRemoteToday(ctx, chatID, userID)

	case command.StartExtraWork:
		h.startExtraWork(ctx, chatID, userID, c.Kind)
	case command.EndExtraWork:
		h.endExtraWork(ctx, chatID, userID)

	case command.Decide:
		h.decide(ctx, callback, c)
	}
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	h.logger.WithFields(logrus.Fields{
		"user_id":  message.From.ID,
		"username": message.From.UserName,
	}).Infof("Message: %s", message.Text)

	// Обработка команд
	if message.IsCommand() {
		h.handleCommand(ctx, message)
		return
	}

	h.sendMainMenu(ctx, message.Chat.ID, message.From.ID, "Выберите действие")
}

// currentUser пользователь или сообщение о том, что он не зарегистрирован
func (h *Handler) currentUser(ctx context.Context, chatID, userID int64) (*models.User, bool) {
	user, err := h.users.Get(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return nil, false
	}
	return user, true
}

func (h *Handler) send(chatID int64, text string, markup any) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	sent, err := h.sender.Send(msg)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
	return sent, err
}

func (h *Handler) reply(chatID int64, text string) {
	_, _ = h.send(chatID, text, nil)
}

func (h *Handler) request(c tgbotapi.Chattable) {
	if _, err := h.sender.Request(c); err != nil {
		h.logger.WithError(err).Warn("Telegram request failed")
	}
}

// replyError показывает отказ пользователю как есть, сбои только в лог
func (h *Handler) replyError(chatID int64, err error) {
	if service.IsRejection(err) || errors.Is(err, command.ErrMalformedCommand) {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	h.logger.WithError(err).WithField("chat_id", chatID).Error("Request failed")
	h.reply(chatID, "❌ Внутренняя ошибка, попробуйте позже")
}
