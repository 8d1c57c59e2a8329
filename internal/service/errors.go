package service

import (
	"errors"
	"fmt"
)

// Отказы по бизнес-правилам. Состояние при них не меняется.
var (
	ErrUserNotRegistered    = errors.New("вы не зарегистрированы, обратитесь к администратору")
	ErrAlreadyInSession     = errors.New("у вас уже есть активная сессия")
	ErrWorkdayAlreadyClosed = errors.New("рабочий день на сегодня уже завершен")
	ErrOnAbsence            = errors.New("на сегодня у вас оформлено отсутствие")
	ErrNoSession            = errors.New("нет активной сессии")
	ErrNotWorking           = errors.New("рабочий день сейчас не идет")
	ErrNotOnBreak           = errors.New("вы сейчас не на перерыве")
	ErrNotInExtraWork       = errors.New("дополнительная работа не идет")
	ErrSessionChanged       = errors.New("сессия изменилась, повторите действие")
	ErrBreakBudgetExhausted = errors.New("лимит перерывов на сегодня исчерпан")
	ErrInsufficientBank     = errors.New("недостаточно времени в банке")
	ErrInvalidExtraWorkKind = errors.New("неизвестный вид дополнительной работы")
	ErrNoRecipients         = errors.New("у вас не назначены руководители")
	ErrNotAuthorized        = errors.New("недостаточно прав")
	ErrRequestNotFound      = errors.New("запрос не найден")
	ErrDecisionNotAllowed   = errors.New("такое решение для этого запроса недоступно")
	ErrAbsenceConflict      = errors.New("период пересекается с уже оформленным отсутствием")
	ErrInvalidPeriod        = errors.New("дата окончания не может быть раньше даты начала")
	ErrInvalidInput         = errors.New("некорректные данные")
)

var rejections = []error{
	ErrUserNotRegistered,
	ErrAlreadyInSession,
	ErrWorkdayAlreadyClosed,
	ErrOnAbsence,
	ErrNoSession,
	ErrNotWorking,
	ErrNotOnBreak,
	ErrNotInExtraWork,
	ErrSessionChanged,
	ErrBreakBudgetExhausted,
	ErrInsufficientBank,
	ErrInvalidExtraWorkKind,
	ErrNoRecipients,
	ErrNotAuthorized,
	ErrRequestNotFound,
	ErrDecisionNotAllowed,
	ErrAbsenceConflict,
	ErrInvalidPeriod,
	ErrInvalidInput,
}

// ShortfallError отказ из-за нехватки времени, Missing - сколько секунд не хватило
type ShortfallError struct {
	Err     error
	Missing int64
}

func (e *ShortfallError) Error() string {
	if e.Missing <= 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (не хватает %s)", e.Err, FormatSeconds(e.Missing))
}

func (e *ShortfallError) Unwrap() error {
	return e.Err
}

// IsRejection отличает отказ по правилам от сбоя хранилища
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
