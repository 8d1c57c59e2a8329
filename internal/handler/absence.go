package handler

import (
	"context"
	"fmt"
	"hr-time-bot/internal/command"
	"hr-time-bot/internal/service"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const absenceUsage = `🏖️ *Отсутствие*

Формат команды:
/absence тип дата_начала [дата_окончания]

Типы: vacation (отпуск), sick\_leave (больничный), business\_trip (командировка)

Примеры:
/absence vacation 01.07.2026 14.07.2026
/absence sick\_leave 15.08.2026`

const requestUsage = `📨 *Запрос руководителю*

Формат команды:
/request тип дата

Типы: day\_off (отгул), remote\_work (удаленная работа)

Пример:
/request day\_off 15.08.2026`

// addAbsence /absence <тип> <с> [по]
func (h *Handler) addAbsence(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	if strings.TrimSpace(args) == "" {
		h.sendMarkdown(chatID, absenceUsage)
		return
	}

	parsed, err := command.ParseAbsence(args, h.config.Timezone)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	period, err := h.absences.Register(ctx, message.From.ID, parsed.Type, parsed.Start, parsed.End)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	days := int(parsed.End.Sub(parsed.Start).Hours()/24) + 1
	h.reply(chatID, fmt.Sprintf("✅ Добавлено\n\n%s\n📅 Количество дней: %d", formatAbsenceLine(period.Type.Title(), parsed), days))
}

func formatAbsenceLine(title string, a command.AbsenceArgs) string {
	if a.Start.Equal(a.End) {
		return fmt.Sprintf("🏖️ %s: %s", title, a.Start.Format("02.01.2006"))
	}
	return fmt.Sprintf("🏖️ %s: %s - %s", title, a.Start.Format("02.01.2006"), a.End.Format("02.01.2006"))
}

// showMyAbsences список периодов отсутствия пользователя
func (h *Handler) showMyAbsences(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if _, ok := h.currentUser(ctx, chatID, message.From.ID); !ok {
		return
	}

	periods, err := h.absences.List(ctx, message.From.ID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if len(periods) == 0 {
		h.reply(chatID, "📭 У вас нет периодов отсутствия")
		return
	}

	lines := []string{"📋 Ваши отсутствия:", ""}
	for i := range periods {
		lines = append(lines, "• "+service.FormatAbsence(&periods[i]))
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

// requestApproval /request <day_off|remote_work> <дата>
func (h *Handler) requestApproval(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	if strings.TrimSpace(args) == "" {
		h.sendMarkdown(chatID, requestUsage)
		return
	}

	parsed, err := command.ParseRequest(args, h.config.Timezone)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	h.createRequest(ctx, chatID, message.From.ID, parsed.Type, parsed.Date)
}

func (h *Handler) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.sender.Send(msg); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
}
