package service

import "fmt"

// FormatSeconds форматирует длительность как "7ч 50м"
func FormatSeconds(seconds int64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	switch {
	case hours == 0 && minutes == 0 && seconds > 0:
		return fmt.Sprintf("%s%dс", sign, seconds)
	case hours == 0:
		return fmt.Sprintf("%s%dм", sign, minutes)
	case minutes == 0:
		return fmt.Sprintf("%s%dч", sign, hours)
	}
	return fmt.Sprintf("%s%dч %dм", sign, hours, minutes)
}
