package command

import (
	"fmt"
	"hr-time-bot/internal/models"
	"hr-time-bot/internal/service"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "02.01.2006"

// ParseDate дата в формате ДД.ММ.ГГГГ в часовом поясе организации
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: дата %q, нужен формат ДД.ММ.ГГГГ", ErrMalformedCommand, s)
	}
	return t, nil
}

// ParseAddUser /adduser <id> <роль> [рук1] [рук2] <ФИО...>
// Руководители - числа сразу после роли, остальное - ФИО.
func ParseAddUser(args string) (service.UserInput, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return service.UserInput{}, fmt.Errorf("%w: /adduser <id> <роль> [рук1] [рук2] <ФИО>", ErrMalformedCommand)
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return service.UserInput{}, fmt.Errorf("%w: id %q", ErrMalformedCommand, fields[0])
	}
	in := service.UserInput{ID: id, Role: strings.ToLower(fields[1])}

	rest := fields[2:]
	var managers []int64
	for len(rest) > 0 && len(managers) < 2 {
		m, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			break
		}
		managers = append(managers, m)
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return service.UserInput{}, fmt.Errorf("%w: не указано ФИО", ErrMalformedCommand)
	}
	if len(managers) > 0 {
		in.Manager1ID = managers[0]
	}
	if len(managers) > 1 {
		in.Manager2ID = managers[1]
	}
	in.FullName = strings.Join(rest, " ")

	return in, nil
}

// ParseUserID /deluser <id>
func ParseUserID(args string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: /deluser <id>", ErrMalformedCommand)
	}
	return id, nil
}

// AbsenceArgs /absence <vacation|sick_leave|business_trip> <с> [по]
type AbsenceArgs struct {
	Type  models.AbsenceType
	Start time.Time
	End   time.Time
}

func ParseAbsence(args string, loc *time.Location) (AbsenceArgs, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return AbsenceArgs{}, fmt.Errorf("%w: /absence <vacation|sick_leave|business_trip> <с> [по]", ErrMalformedCommand)
	}

	t, err := models.ParseAbsenceType(fields[0])
	if err != nil {
		return AbsenceArgs{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	start, err := ParseDate(fields[1], loc)
	if err != nil {
		return AbsenceArgs{}, err
	}
	end := start
	if len(fields) == 3 {
		if end, err = ParseDate(fields[2], loc); err != nil {
			return AbsenceArgs{}, err
		}
	}

	return AbsenceArgs{Type: t, Start: start, End: end}, nil
}

// RequestArgs /request <day_off|remote_work> <дата>
type RequestArgs struct {
	Type models.RequestType
	Date time.Time
}

func ParseRequest(args string, loc *time.Location) (RequestArgs, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return RequestArgs{}, fmt.Errorf("%w: /request <day_off|remote_work> <ДД.ММ.ГГГГ>", ErrMalformedCommand)
	}

	t := models.RequestType(fields[0])
	if t != models.RequestDayOff && t != models.RequestRemoteWork {
		return RequestArgs{}, fmt.Errorf("%w: тип запроса %q", ErrMalformedCommand, fields[0])
	}
	date, err := ParseDate(fields[1], loc)
	if err != nil {
		return RequestArgs{}, err
	}

	return RequestArgs{Type: t, Date: date}, nil
}

// ReportArgs /report [с по] [id]; без дат - текущий месяц
type ReportArgs struct {
	From   time.Time
	To     time.Time
	UserID int64
}

func ParseReport(args string, now time.Time) (ReportArgs, error) {
	fields := strings.Fields(args)
	loc := now.Location()

	r := ReportArgs{
		From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc),
		To:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc),
	}

	switch len(fields) {
	case 0:
		return r, nil
	case 1:
		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return ReportArgs{}, fmt.Errorf("%w: /report [с по] [id]", ErrMalformedCommand)
		}
		r.UserID = id
		return r, nil
	case 2, 3:
		from, err := ParseDate(fields[0], loc)
		if err != nil {
			return ReportArgs{}, err
		}
		to, err := ParseDate(fields[1], loc)
		if err != nil {
			return ReportArgs{}, err
		}
		r.From, r.To = from, to
		if len(fields) == 3 {
			if r.UserID, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
				return ReportArgs{}, fmt.Errorf("%w: id %q", ErrMalformedCommand, fields[2])
			}
		}
		return r, nil
	}

	return ReportArgs{}, fmt.Errorf("%w: /report [с по] [id]", ErrMalformedCommand)
}
