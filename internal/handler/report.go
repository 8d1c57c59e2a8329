package handler

import (
	"context"
	"fmt"
	"hr-time-bot/internal/command"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/service"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sendReport /report [с по] [id]. Чужой отчет доступен руководителю сотрудника и администратору.
func (h *Handler) sendReport(ctx context.Context, chatID, userID int64, args string) {
	user, ok := h.currentUser(ctx, chatID, userID)
	if !ok {
		return
	}

	parsed, err := command.ParseReport(args, h.clock.Now())
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	target := userID
	if parsed.UserID != 0 && parsed.UserID != userID {
		if !h.canView(ctx, user, parsed.UserID) {
			h.replyError(chatID, service.ErrNotAuthorized)
			return
		}
		target = parsed.UserID
	}

	report, err := h.reports.EmployeeReport(ctx, target, parsed.From, parsed.To)
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	h.reply(chatID, formatEmployeeReport(report))
}

func (h *Handler) canView(ctx context.Context, viewer *models.User, userID int64) bool {
	if viewer.IsAdmin() {
		return true
	}

	members, err := h.users.ManagedBy(ctx, viewer)
	if err != nil {
		return false
	}
	for _, m := range members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

func formatEmployeeReport(r *service.EmployeeReport) string {
	var sb strings.Builder

	period := r.From.Format("02.01.2006")
	if !r.To.Equal(r.From) {
		period += " - " + r.To.Format("02.01.2006")
	}

	sb.WriteString(fmt.Sprintf("📈 Отчет: %s\n📅 %s\n\n", r.User.FullName, period))
	sb.WriteString(fmt.Sprintf("🗓 Рабочих дней: %d\n", r.DaysWorked))
	sb.WriteString(fmt.Sprintf("⏳ Отработано: %s\n", service.FormatSeconds(r.WorkSeconds)))
	if r.RemoteSeconds > 0 {
		sb.WriteString(fmt.Sprintf("🏠 Из них удаленно: %s\n", service.FormatSeconds(r.RemoteSeconds)))
	}
	sb.WriteString(fmt.Sprintf("☕ Перерывы: %s\n", service.FormatSeconds(r.BreakSeconds)))
	sb.WriteString(fmt.Sprintf("🏦 Работа в банк: %s\n", service.FormatSeconds(r.BankingSeconds)))
	sb.WriteString(fmt.Sprintf("🏦 Списано из банка: %s\n", service.FormatSeconds(r.BankDebitedSeconds)))
	sb.WriteString(fmt.Sprintf("🧾 Отработано долга: %s\n", service.FormatSeconds(r.DebtClearedSeconds)))
	sb.WriteString(fmt.Sprintf("🧾 Долг за текущий месяц: %s\n", service.FormatSeconds(r.PendingDebtSeconds)))
	sb.WriteString(fmt.Sprintf("💰 Банк времени сейчас: %s", service.FormatSeconds(r.User.TimeBankSeconds)))

	if len(r.Absences) > 0 {
		sb.WriteString("\n\n🏖 Отсутствия:")
		for i := range r.Absences {
			sb.WriteString("\n• " + service.FormatAbsence(&r.Absences[i]))
		}
	}

	return sb.String()
}

func (h *Handler) showTeamStatus(ctx context.Context, chatID, userID int64) {
	statuses, err := h.reports.TeamStatus(ctx, userID)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if len(statuses) == 0 {
		h.reply(chatID, "👥 В вашей команде пока нет сотрудников")
		return
	}

	lines := []string{"👥 Команда сейчас:", ""}
	for _, st := range statuses {
		lines = append(lines, formatMemberStatus(st))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		button("🔄 Обновить", command.TeamStatus{}),
		button("📋 Отчет за месяц", command.TeamReport{}),
	))
	_, _ = h.send(chatID, strings.Join(lines, "\n"), markup)
}

func formatMemberStatus(st service.MemberStatus) string {
	name := st.User.FullName

	switch st.State {
	case service.MemberInSession:
		switch s := st.Session.(type) {
		case *models.Working:
			return fmt.Sprintf("🟢 %s: работает с %s (%s)", name, s.Start.Format("15:04"), placeTitle(s.Remote))
		case *models.OnBreak:
			return fmt.Sprintf("🟡 %s: на перерыве с %s", name, s.BreakStart.Format("15:04"))
		case *models.ExtraWork:
			if s.Kind == models.StatusBankingTime {
				return fmt.Sprintf("🏦 %s: работа в банк с %s", name, s.Start.Format("15:04"))
			}
			return fmt.Sprintf("🧾 %s: отработка долга с %s", name, s.Start.Format("15:04"))
		}
	case service.MemberAbsent:
		return fmt.Sprintf("🏖 %s: %s", name, service.FormatAbsence(st.Absence))
	case service.MemberFinished:
		return fmt.Sprintf("✅ %s: закончил в %s", name, st.FinishedAt.Format("15:04"))
	case service.MemberOffline:
	}

	return fmt.Sprintf("⚪ %s: не на работе", name)
}

// showTeamReport итоги команды за текущий месяц
func (h *Handler) showTeamReport(ctx context.Context, chatID, userID int64) {
	parsed, err := command.ParseReport("", h.clock.Now())
	if err != nil {
		h.replyError(chatID, err)
		return
	}

	reports, err := h.reports.TeamReport(ctx, userID, parsed.From, parsed.To)
	if err != nil {
		h.replyError(chatID, err)
		return
	}
	if len(reports) == 0 {
		h.reply(chatID, "👥 В вашей команде пока нет сотрудников")
		return
	}

	lines := []string{fmt.Sprintf("📋 Команда с %s по %s:", parsed.From.Format("02.01.2006"), parsed.To.Format("02.01.2006")), ""}
	for _, r := range reports {
		lines = append(lines, fmt.Sprintf("👤 %s: %d дн., %s, банк %s, долг %s",
			r.User.FullName,
			r.DaysWorked,
			service.FormatSeconds(r.WorkSeconds),
			service.FormatSeconds(r.User.TimeBankSeconds),
			service.FormatSeconds(r.PendingDebtSeconds),
		))
	}
	lines = append(lines, "", "Подробно: /report ДД.ММ.ГГГГ ДД.ММ.ГГГГ <id>")

	h.reply(chatID, strings.Join(lines, "\n"))
}
