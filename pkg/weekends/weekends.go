// Package weekends разбирает производственный календарь в формате xmlcalendar.ru (JSON).
package weekends

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// WeekendJSON - структура для парсинга исходного JSON
type WeekendJSON struct {
	Year        int             `json:"year"`
	Months      []MonthWeekends `json:"months"`
	Transitions []Transition    `json:"transitions"`
	Statistic   Statistic       `json:"statistic"`
}

type MonthWeekends struct {
	Month int    `json:"month"`
	Days  string `json:"days"`
}

type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Statistic struct {
	Workdays int `json:"workdays"`
	Holidays int `json:"holidays"`
}

// NonWorkingDay - нерабочий день календаря
type NonWorkingDay struct {
	Date  time.Time
	Year  int
	Month int
	Day   int
}

// Key дата в формате YYYY-MM-DD
func (d NonWorkingDay) Key() string {
	return d.Date.Format(time.DateOnly)
}

// ParseWeekendsJSON - читает файл и возвращает нерабочие дни
func ParseWeekendsJSON(filePath string) ([]NonWorkingDay, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	return Parse(data)
}

// Parse - разбирает JSON календаря.
// "*" отмечает сокращенный рабочий день и пропускается, "+" - перенесенный выходной.
func Parse(data []byte) ([]NonWorkingDay, error) {
	var weekendJSON WeekendJSON
	if err := json.Unmarshal(data, &weekendJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if weekendJSON.Year == 0 {
		return nil, fmt.Errorf("calendar year is missing")
	}

	nonWorkingDays := []NonWorkingDay{}

	for _, monthData := range weekendJSON.Months {
		if monthData.Month < 1 || monthData.Month > 12 {
			return nil, fmt.Errorf("invalid month %d", monthData.Month)
		}

		for _, dayStr := range strings.Split(monthData.Days, ",") {
			dayStr = strings.TrimSpace(dayStr)
			if dayStr == "" || strings.HasSuffix(dayStr, "*") {
				continue
			}
			dayStr = strings.TrimSuffix(dayStr, "+")

			day, err := strconv.Atoi(dayStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse day '%s' in month %d: %w",
					dayStr, monthData.Month, err)
			}

			date := time.Date(weekendJSON.Year, time.Month(monthData.Month), day, 0, 0, 0, 0, time.UTC)
			if date.Day() != day {
				return nil, fmt.Errorf("day %d does not exist in month %d", day, monthData.Month)
			}

			nonWorkingDays = append(nonWorkingDays, NonWorkingDay{
				Date:  date,
				Year:  weekendJSON.Year,
				Month: monthData.Month,
				Day:   day,
			})
		}
	}

	return nonWorkingDays, nil
}
