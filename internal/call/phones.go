// Package call drives the outbound prospección call: candidate phone
// collection, the busy-retry dial loop, transcript formatting, and the HTML
// audit note.
package call

import (
	"strings"

	"github.com/hotelbdd/agente-bdd/internal/model"
	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
	"github.com/hotelbdd/agente-bdd/pkg/webscrape"
)

// NormalizePhone strips formatting and ensures a leading "+". Returns ""
// when the number has too few digits to dial.
func NormalizePhone(raw string) string {
	digits := webscrape.Digits(raw)
	if len(digits) < 7 {
		return ""
	}
	return "+" + digits
}

// CollectCandidates builds the ordered, deduplicated phone list for a
// company: company phone first, then each associated contact's phone and
// mobile. Numbers sharing the same digits count as one candidate.
func CollectCandidates(company *hubspot.Company, contacts []hubspot.Contact) []model.PhoneCandidate {
	var (
		candidates []model.PhoneCandidate
		seen       = map[string]bool{}
	)

	add := func(raw, source string) {
		number := NormalizePhone(raw)
		if number == "" {
			return
		}
		key := webscrape.Digits(number)
		if seen[key] {
			return
		}
		seen[key] = true
		candidates = append(candidates, model.PhoneCandidate{Number: number, Source: source})
	}

	add(company.Properties.Phone, "company")
	for _, contact := range contacts {
		add(contact.Properties.Phone, "contact:"+contact.ID+":phone")
		add(contact.Properties.MobilePhone, "contact:"+contact.ID+":mobile")
	}
	return candidates
}

// SplitName splits a full name into first and last parts on the first space.
func SplitName(fullName string) (first, last string) {
	fields := strings.Fields(strings.TrimSpace(fullName))
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// FriendlySource renders a candidate source for the audit note.
func FriendlySource(source string) string {
	if source == "company" {
		return "Empresa"
	}
	parts := strings.Split(source, ":")
	if len(parts) == 3 && parts[0] == "contact" {
		kind := "telefono"
		if parts[2] == "mobile" {
			kind = "celular"
		}
		return "Contacto (" + kind + ")"
	}
	return source
}
