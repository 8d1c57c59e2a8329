// Package command декодирует данные кнопок и аргументы текстовых команд в типизированные команды.
package command

import (
	"errors"
	"fmt"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/service"
	"strconv"
	"strings"
)

var ErrMalformedCommand = errors.New("некорректная команда")

// Command команда из кнопки. Набор реализаций закрыт.
type Command interface {
	// Data строка для CallbackData кнопки
	Data() string
	command()
}

type (
	ShowMenu     struct{}
	ShowStatus   struct{}
	ShowTimeBank struct{}
	MyReport     struct{}
	TeamStatus   struct{}
	TeamReport   struct{}

	StartWork            struct{ Remote bool }
	StartBreak           struct{}
	EndBreak             struct{}
	EndWork              struct{}
	CloseEarlyUsingBank  struct{}
	CloseEarlyAskManager struct{}
	RequestRemoteWork    struct{}

	StartExtraWork struct{ Kind models.SessionStatus }
	EndExtraWork   struct{}

	Decide struct {
		RequestID uint
		Decision  service.Decision
	}
)

func (ShowMenu) Data() string     { return "main_menu" }
func (ShowStatus) Data() string   { return "status" }
func (ShowTimeBank) Data() string { return "time_bank" }
func (MyReport) Data() string     { return "my_report" }
func (TeamStatus) Data() string   { return "team_status" }
func (TeamReport) Data() string   { return "team_report" }

func (c StartWork) Data() string {
	if c.Remote {
		return "start_work_remote"
	}
	return "start_work_office"
}
func (StartBreak) Data() string           { return "start_break" }
func (EndBreak) Data() string             { return "end_break" }
func (EndWork) Data() string              { return "end_work" }
func (CloseEarlyUsingBank) Data() string  { return "use_bank" }
func (CloseEarlyAskManager) Data() string { return "ask_manager" }
func (RequestRemoteWork) Data() string    { return "request_remote" }

func (c StartExtraWork) Data() string {
	if c.Kind == models.StatusBankingTime {
		return "start_banking"
	}
	return "start_clearing_debt"
}
func (EndExtraWork) Data() string { return "end_extra_work" }

func (c Decide) Data() string {
	return decisionPrefix[c.Decision] + strconv.FormatUint(uint64(c.RequestID), 10)
}

func (ShowMenu) command()             {}
func (ShowStatus) command()           {}
func (ShowTimeBank) command()         {}
func (MyReport) command()             {}
func (TeamStatus) command()           {}
func (TeamReport) command()           {}
func (StartWork) command()            {}
func (StartBreak) command()           {}
func (EndBreak) command()             {}
func (EndWork) command()              {}
func (CloseEarlyUsingBank) command()  {}
func (CloseEarlyAskManager) command() {}
func (RequestRemoteWork) command()    {}
func (StartExtraWork) command()       {}
func (EndExtraWork) command()         {}
func (Decide) command()               {}

var simple = map[string]Command{}

var decisionPrefix = map[service.Decision]string{
	service.DecisionApproveForgive: "approve_no_debt_",
	service.DecisionApprove:        "approve_",
	service.DecisionDeny:           "deny_",
	service.DecisionAcknowledge:    "ack_request_",
}

// порядок важен: approve_no_debt_ проверяется раньше approve_
var decisionOrder = []service.Decision{
	service.DecisionApproveForgive,
	service.DecisionApprove,
	service.DecisionDeny,
	service.DecisionAcknowledge,
}

func init() {
	for _, c := range []Command{
		ShowMenu{}, ShowStatus{}, ShowTimeBank{}, MyReport{}, TeamStatus{}, TeamReport{},
		StartWork{Remote: false}, StartWork{Remote: true},
		StartBreak{}, EndBreak{}, EndWork{},
		CloseEarlyUsingBank{}, CloseEarlyAskManager{}, RequestRemoteWork{},
		StartExtraWork{Kind: models.StatusClearingDebt}, StartExtraWork{Kind: models.StatusBankingTime},
		EndExtraWork{},
	} {
		simple[c.Data()] = c
	}
}

// Parse разбирает CallbackData. Неизвестные данные - ErrMalformedCommand.
func Parse(data string) (Command, error) {
	if c, ok := simple[data]; ok {
		return c, nil
	}

	for _, d := range decisionOrder {
		prefix := decisionPrefix[d]
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 32)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedCommand, data)
		}
		return Decide{RequestID: uint(id), Decision: d}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrMalformedCommand, data)
}
