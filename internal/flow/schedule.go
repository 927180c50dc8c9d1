// Package flow orchestrates the four agent flows against the CRM: hotel
// enrichment, prospección calls, lead qualification, and task activation.
package flow

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TaskAgentPrefix marks CRM tasks the agent processes itself.
const TaskAgentPrefix = "Agente:"

// countryTimezones maps lowercase country names to IANA zones. Unknown
// countries fall back to UTC.
var countryTimezones = map[string]string{
	"argentina":          "America/Argentina/Buenos_Aires",
	"bolivia":            "America/La_Paz",
	"brazil":             "America/Sao_Paulo",
	"chile":              "America/Santiago",
	"colombia":           "America/Bogota",
	"costa rica":         "America/Costa_Rica",
	"cuba":               "America/Havana",
	"dominican republic": "America/Santo_Domingo",
	"ecuador":            "America/Guayaquil",
	"el salvador":        "America/El_Salvador",
	"guatemala":          "America/Guatemala",
	"honduras":           "America/Tegucigalpa",
	"mexico":             "America/Mexico_City",
	"nicaragua":          "America/Managua",
	"panama":             "America/Panama",
	"paraguay":           "America/Asuncion",
	"peru":               "America/Lima",
	"puerto rico":        "America/Puerto_Rico",
	"spain":              "Europe/Madrid",
	"uruguay":            "America/Montevideo",
	"venezuela":          "America/Caracas",
}

// Spanish country names companies often carry instead of the English ones.
var countryAliases = map[string]string{
	"méxico":               "mexico",
	"españa":               "spain",
	"perú":                 "peru",
	"brasil":               "brazil",
	"panamá":               "panama",
	"república dominicana": "dominican republic",
}

// fixedHolidays lists fixed-date national holidays (MM-DD) per country.
// Movable feasts are not tracked; a task landing on one simply runs a day
// early.
var fixedHolidays = map[string][]string{
	"argentina":          {"01-01", "03-24", "04-02", "05-01", "05-25", "06-20", "07-09", "12-08", "12-25"},
	"bolivia":            {"01-01", "05-01", "06-21", "08-06", "11-02", "12-25"},
	"brazil":             {"01-01", "04-21", "05-01", "09-07", "10-12", "11-02", "11-15", "12-25"},
	"chile":              {"01-01", "05-01", "05-21", "09-18", "09-19", "10-12", "12-25"},
	"colombia":           {"01-01", "05-01", "07-20", "08-07", "12-08", "12-25"},
	"costa rica":         {"01-01", "04-11", "05-01", "07-25", "09-15", "12-25"},
	"cuba":               {"01-01", "05-01", "07-26", "10-10", "12-25"},
	"dominican republic": {"01-01", "01-21", "02-27", "05-01", "08-16", "12-25"},
	"ecuador":            {"01-01", "05-01", "05-24", "08-10", "10-09", "12-25"},
	"el salvador":        {"01-01", "05-01", "08-06", "09-15", "12-25"},
	"guatemala":          {"01-01", "05-01", "06-30", "09-15", "10-20", "12-25"},
	"honduras":           {"01-01", "04-14", "05-01", "09-15", "12-25"},
	"mexico":             {"01-01", "02-05", "03-21", "05-01", "09-16", "11-20", "12-25"},
	"nicaragua":          {"01-01", "05-01", "07-19", "09-14", "09-15", "12-25"},
	"panama":             {"01-01", "01-09", "05-01", "11-03", "11-28", "12-25"},
	"paraguay":           {"01-01", "03-01", "05-01", "05-15", "08-15", "12-25"},
	"peru":               {"01-01", "05-01", "07-28", "07-29", "08-30", "12-25"},
	"puerto rico":        {"01-01", "07-04", "11-11", "12-25"},
	"spain":              {"01-01", "01-06", "05-01", "08-15", "10-12", "11-01", "12-06", "12-08", "12-25"},
	"uruguay":            {"01-01", "05-01", "07-18", "08-25", "12-25"},
	"venezuela":          {"01-01", "04-19", "05-01", "06-24", "07-05", "07-24", "12-25"},
}

func countryKey(country string) string {
	key := strings.ToLower(strings.TrimSpace(country))
	if canonical, ok := countryAliases[key]; ok {
		return canonical
	}
	return key
}

// CountryLocation resolves the time zone for a country name, falling back to
// UTC when the country is unknown or the zone is unavailable.
func CountryLocation(country string) *time.Location {
	name, ok := countryTimezones[countryKey(country)]
	if !ok {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		zap.L().Warn("time zone unavailable, using UTC", zap.String("zone", name))
		return time.UTC
	}
	return loc
}

func isHoliday(country string, day time.Time) bool {
	dates, ok := fixedHolidays[countryKey(country)]
	if !ok {
		return false
	}
	md := day.Format("01-02")
	for _, d := range dates {
		if d == md {
			return true
		}
	}
	return false
}

// IsBusinessDay reports whether the given local day is Mon-Fri and not a
// national holiday in the country.
func IsBusinessDay(country string, localDay time.Time) bool {
	switch localDay.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !isHoliday(country, localDay)
}

// IsBusinessHour reports whether it is between 09:00 and 18:00 local time in
// the country. The calendar (weekends, holidays) is IsBusinessDay's concern.
func IsBusinessHour(country string, now time.Time) bool {
	local := now.In(CountryLocation(country))
	return local.Hour() >= 9 && local.Hour() < 18
}

// NextBusinessDay returns the next business day strictly after the local
// reference day, capped at a 30-day scan.
func NextBusinessDay(country string, localDay time.Time) time.Time {
	candidate := localDay.AddDate(0, 0, 1)
	for i := 0; i < 30; i++ {
		if IsBusinessDay(country, candidate) {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// RandomBusinessTime places the day at a random minute in the morning
// (09:00-11:59) or afternoon (14:00-16:59) slot, in the day's location, and
// returns the instant in UTC.
func RandomBusinessTime(day time.Time) time.Time {
	hour := 9 + rand.Intn(3)
	if rand.Intn(2) == 1 {
		hour = 14 + rand.Intn(3)
	}
	minute := rand.Intn(60)

	local := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	return local.UTC()
}

// ComputeTaskDueDate picks the follow-up due instant for a company's
// country: the next business day at a random business-slot time, as an
// RFC 3339 UTC string.
func ComputeTaskDueDate(country string, now time.Time) string {
	local := now.In(CountryLocation(country))
	day := NextBusinessDay(country, local)
	return RandomBusinessTime(day).Format(time.RFC3339)
}

// ParseTaskAgente extracts the agente value from an agent task subject
// ("Agente:calificar_lead | Hotel Sol" → "calificar_lead"). Returns "" for
// subjects without the prefix.
func ParseTaskAgente(subject string) string {
	if !strings.HasPrefix(subject, TaskAgentPrefix) {
		return ""
	}
	value := strings.TrimPrefix(subject, TaskAgentPrefix)
	value, _, _ = strings.Cut(value, "|")
	return strings.TrimSpace(value)
}

// BuildTaskSubject builds the subject for a follow-up task the agent will
// pick up later.
func BuildTaskSubject(agenteValue, companyName string) string {
	name := strings.TrimSpace(companyName)
	if name == "" {
		name = "Sin nombre"
	}
	return TaskAgentPrefix + agenteValue + " | " + name
}

// BuildTaskBody renders the structured context body for a follow-up task.
func BuildTaskBody(companyID, companyName, city, country string) string {
	orNA := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "N/A"
		}
		return s
	}
	return fmt.Sprintf("company_id: %s\ncompany_name: %s\ncity: %s\ncountry: %s",
		companyID, orNA(companyName), orNA(city), orNA(country))
}
