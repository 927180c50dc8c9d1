// Package webscrape extracts hotel contact data from web page text. It is
// both the fallback website lookup (direct page fetch) and the home of the
// extraction patterns shared with the search-based providers.
package webscrape

import (
	"regexp"
	"strings"
)

var (
	phoneRE     = regexp.MustCompile(`\+?\d[\d\s\-().]{5,}\d`)
	emailRE     = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	whatsappRE  = regexp.MustCompile(`(?:https?://)?(?:wa\.me/|api\.whatsapp\.com/send\?phone=)(\d+)`)
	instagramRE = regexp.MustCompile(`https?://(?:www\.)?instagram\.com/([a-zA-Z0-9_.]+)`)
	roomRE      = regexp.MustCompile(`(?i)(\d+)\s*(?:habitacion|room|cuarto|suite|chambre|quarto)`)
	tagRE       = regexp.MustCompile(`<[^>]+>`)
)

var blockedEmailDomains = map[string]bool{
	"google.com":    true,
	"facebook.com":  true,
	"twitter.com":   true,
	"instagram.com": true,
	"youtube.com":   true,
	"linkedin.com":  true,
	"sentry.io":     true,
	"example.com":   true,
	"wixpress.com":  true,
	"w3.org":        true,
}

// Instagram URL paths that are not profiles.
var nonProfilePaths = map[string]bool{
	"p":        true,
	"reel":     true,
	"stories":  true,
	"explore":  true,
	"accounts": true,
	"api":      true,
}

// Digits strips everything but digits from a phone string.
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone reduces a raw phone string to "+<digits>".
func NormalizePhone(phone string) string {
	digits := Digits(phone)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// IsValidPhone reports whether the string has at least 7 digits.
func IsValidPhone(phone string) bool {
	return len(Digits(phone)) >= 7
}

// ExtractPhones returns normalized phone numbers found in text, deduplicated
// by digit key in order of appearance.
func ExtractPhones(text string) []string {
	seen := make(map[string]bool)
	var phones []string
	for _, match := range phoneRE.FindAllString(text, -1) {
		if !IsValidPhone(match) {
			continue
		}
		normalized := NormalizePhone(match)
		key := Digits(normalized)
		if !seen[key] {
			seen[key] = true
			phones = append(phones, normalized)
		}
	}
	return phones
}

// ExtractEmails returns lowercased emails found in text, skipping platform
// and tracker domains.
func ExtractEmails(text string) []string {
	seen := make(map[string]bool)
	var emails []string
	for _, match := range emailRE.FindAllString(text, -1) {
		email := strings.ToLower(match)
		_, domain, _ := strings.Cut(email, "@")
		domain = strings.TrimSuffix(domain, ".")
		if seen[email] || blockedEmailDomains[domain] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}
	return emails
}

// ExtractWhatsApp returns the first WhatsApp number linked in text as
// "+<digits>", or "".
func ExtractWhatsApp(text string) string {
	m := whatsappRE.FindStringSubmatch(text)
	if m == nil || len(m[1]) < 7 {
		return ""
	}
	return "+" + m[1]
}

// ExtractInstagramURL returns the first Instagram profile URL in text,
// skipping post/reel/story links.
func ExtractInstagramURL(text string) string {
	for _, m := range instagramRE.FindAllStringSubmatch(text, -1) {
		username := strings.TrimSuffix(strings.ToLower(m[1]), "/")
		if !nonProfilePaths[username] {
			return m[0]
		}
	}
	return ""
}

// ExtractRoomCount returns the first room count mentioned in text, or "".
func ExtractRoomCount(text string) string {
	m := roomRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripHTML removes markup tags from an HTML fragment.
func StripHTML(text string) string {
	return tagRE.ReplaceAllString(text, " ")
}
