package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var weekdayNames = map[string]string{
	"0": "Sunday", "1": "Monday", "2": "Tuesday", "3": "Wednesday",
	"4": "Thursday", "5": "Friday", "6": "Saturday", "7": "Sunday",
}

// NextCronRun returns the next execution time of expr after from.
func NextCronRun(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule.Next(from), nil
}

// CronToHuman renders a standard five-field cron expression as a short
// English phrase. Expressions it cannot describe (or parse) come back as-is.
func CronToHuman(expr string) string {
	if _, err := cronParser.Parse(expr); err != nil {
		return expr
	}

	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]

	if dom != "*" || month != "*" {
		return expr
	}

	switch {
	case minute == "*" && hour == "*" && dow == "*":
		return "Every minute"
	case strings.HasPrefix(minute, "*/") && hour == "*" && dow == "*":
		return fmt.Sprintf("Every %s minutes", minute[2:])
	case isNumeric(minute) && hour == "*" && dow == "*":
		return fmt.Sprintf("Hourly at minute %s", minute)
	case isNumeric(minute) && strings.HasPrefix(hour, "*/") && dow == "*":
		return fmt.Sprintf("Every %s hours at minute %s", hour[2:], minute)
	case isNumeric(minute) && isNumeric(hour) && dow == "*":
		return fmt.Sprintf("Daily at %s", clockTime(hour, minute))
	case isNumeric(minute) && isNumeric(hour):
		if day, ok := weekdayNames[dow]; ok {
			return fmt.Sprintf("Weekly on %s at %s", day, clockTime(hour, minute))
		}
	}
	return expr
}

func clockTime(hour, minute string) string {
	h, _ := strconv.Atoi(hour)
	m, _ := strconv.Atoi(minute)
	return fmt.Sprintf("%02d:%02d", h, m)
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
