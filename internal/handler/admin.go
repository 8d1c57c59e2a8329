package handler

import (
	"context"
	"fmt"
	"hr-time-bot/internal/command"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/service"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// requireAdmin проверяет права доступа администратора
func (h *Handler) requireAdmin(ctx context.Context, chatID, userID int64) (*models.User, bool) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return nil, false
	}
	if !user.IsAdmin() {
		h.reply(chatID, "❌ Доступ запрещен. Эта команда только для администраторов.")
		return nil, false
	}
	return user, true
}

// addUser /adduser <id> <роль> [рук1] [рук2] <ФИО>
func (h *Handler) addUser(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	admin, ok := h.requireAdmin(ctx, chatID, message.From.ID)
	if !ok {
		return
	}

	in, err := command.ParseAddUser(args)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	user, err := h.users.AddOrUpdate(ctx, in)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id": admin.ID,
		"user_id":  user.ID,
		"role":     user.Role,
	}).Info("User saved by admin")

	h.reply(chatID, "✅ Пользователь сохранен\n\n"+service.FormatUserInfo(user))
}

// deleteUser /deluser <id>
func (h *Handler) deleteUser(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	admin, ok := h.requireAdmin(ctx, chatID, message.From.ID)
	if !ok {
		return
	}

	id, err := command.ParseUserID(args)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if id == admin.ID {
		h.reply(chatID, "❌ Нельзя удалить самого себя")
		return
	}

	if err := h.users.Delete(ctx, id); err != nil {
		h.replyError(chatID, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id": admin.ID,
		"user_id":  id,
	}).Info("User deleted by admin")

	h.reply(chatID, fmt.Sprintf("🗑 Пользователь %d удален вместе с историей", id))
}

// showAllUsers показывает всех пользователей
func (h *Handler) showAllUsers(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := h.requireAdmin(ctx, chatID, message.From.ID); !ok {
		return
	}

	users, err := h.users.List(ctx)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if len(users) == 0 {
		h.reply(chatID, "📭 Пользователей пока нет")
		return
	}

	blocks := make([]string, 0, len(users)+1)
	blocks = append(blocks, fmt.Sprintf("👥 Пользователи (%d):", len(users)))
	for _, u := range users {
		blocks = append(blocks, service.FormatUserInfo(u))
	}
	h.reply(chatID, strings.Join(blocks, "\n\n"))
}

// loadHolidays /loadholidays [файл] перечитывает производственный календарь
func (h *Handler) loadHolidays(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	if _, ok := h.requireAdmin(ctx, chatID, message.From.ID); !ok {
		return
	}

	path := strings.TrimSpace(args)
	if path == "" {
		path = h.config.HolidaysFile
	}
	if path == "" {
		h.reply(chatID, "❌ Укажите файл: /loadholidays <путь к JSON>")
		return
	}

	n, err := h.calendar.LoadFromJSON(ctx, path)
	if err != nil {
		h.logger.WithError(err).WithField("file", path).Error("Failed to load holidays")
		h.reply(chatID, "❌ Ошибка загрузки календаря: "+err.Error())
		return
	}

	h.reply(chatID, fmt.Sprintf("📅 Загружено нерабочих дней: %d", n))
}
