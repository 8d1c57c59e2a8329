package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID
	args := message.CommandArguments()

	switch message.Command() {
	case "start", "menu":
		h.sendMainMenu(ctx, chatID, userID, "👋 Учет рабочего времени\n\nВыберите действие")
	case "help":
		h.sendHelpMessage(ctx, message)

	// Учет рабочего времени
	case "status":
		h.showStatus(ctx, chatID, userID)
	case "bank":
		h.showTimeBank(ctx, chatID, userID)
	case "report":
		h.sendReport(ctx, chatID, userID, args)
	case "teamstatus":
		h.showTeamStatus(ctx, chatID, userID)
	case "teamreport":
		h.showTeamReport(ctx, chatID, userID)

	// Отсутствия и запросы
	case "absence":
		h.addAbsence(ctx, message, args)
	case "myabsences":
		h.showMyAbsences(ctx, message)
	case "request":
		h.requestApproval(ctx, message, args)

	// Администрирование
	case "adduser":
		h.addUser(ctx, message, args)
	case "deluser":
		h.deleteUser(ctx, message, args)
	case "users":
		h.showAllUsers(ctx, message)
	case "loadholidays":
		h.loadHolidays(ctx, message, args)

	default:
		h.sendUnknownCommand(message)
	}
}

func (h *Handler) sendUnknownCommand(message *tgbotapi.Message) {
	h.reply(message.Chat.ID, "❌ Неизвестная команда. Используйте /help для списка команд.")
}

const helpText = `📋 Доступные команды:

⏰ Учет рабочего времени:
/menu - Главное меню с кнопками
/status - Текущий статус
/bank - Банк времени и долг
/report [с по] - Отчет, по умолчанию за текущий месяц
    Пример: /report 01.08.2025 31.08.2025

🏖️ Отсутствия и запросы:
/absence тип с [по] - Отпуск, больничный или командировка
    Пример: /absence vacation 01.07.2026 14.07.2026
/myabsences - Мои периоды отсутствия
/request тип дата - Запросить отгул или удаленку
    Пример: /request day_off 15.08.2026

💡 Как пользоваться:
1. Начинайте день кнопкой в /menu
2. Перерывы отмечайте кнопкой «Перерыв»
3. Если уходите раньше нормы, закройте день из банка или спросите руководителя
4. Долг отрабатывается кнопкой «Отработать долг»`

const managerHelpText = `

🧑‍💼 Руководителю:
/teamstatus - Кто сейчас работает
/teamreport - Итоги команды за месяц
/report с по id - Отчет по сотруднику`

const adminHelpText = `

👑 Администратору:
/adduser id роль [рук1] [рук2] ФИО - Добавить или изменить пользователя
    Роли: employee, manager, admin
/deluser id - Удалить пользователя
/users - Все пользователи
/loadholidays [файл] - Загрузить производственный календарь`

func (h *Handler) sendHelpMessage(ctx context.Context, message *tgbotapi.Message) {
	text := helpText

	if user, err := h.users.Get(ctx, message.From.ID); err == nil {
		if user.Role.CanDecide() {
			text += managerHelpText
		}
		if user.IsAdmin() {
			text += adminHelpText
		}
	}

	h.reply(message.Chat.ID, text)
}
