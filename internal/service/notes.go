package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ridgeline-exteriors/booking-api/internal/domain"
)

const (
	noPreferredTime = "No preferred time"
	noNotes         = "No additional notes."
	notesDateLayout = "01/02/2006"
)

// propertyBoilerplate matches a leading "This is a <type> property." sentence
var propertyBoilerplate = regexp.MustCompile(`(?i)^\s*this is an? [\w -]+? property\.\s*`)

// PropertyLabel renders the property type sentence used in job notes
func PropertyLabel(propertyType domain.PropertyType) string {
	kind := strings.TrimSpace(string(propertyType))
	if kind == "" {
		kind = string(domain.PropertyTypeResidential)
	}
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(kind))
	for i, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(first)) + strings.ToLower(w[size:])
	}
	return "This is a " + strings.Join(words, " ") + " Property"
}

// FormatJobNotes builds the AccuLynx job notes for an order. The output only
// depends on the order fields, so the same order always yields the same text.
func FormatJobNotes(order *domain.Order) string {
	return strings.Join([]string{
		PropertyLabel(order.PropertyType),
		order.JobRef,
		preferredTime(order),
		userNotes(order.Notes),
	}, " - ")
}

func preferredTime(order *domain.Order) string {
	var parts []string
	if order.ScheduledAt != nil {
		parts = append(parts, order.ScheduledAt.UTC().Format(notesDateLayout))
	}
	if order.PreferredWindow != nil {
		if window := strings.TrimSpace(*order.PreferredWindow); window != "" {
			parts = append(parts, window)
		}
	}
	if len(parts) == 0 {
		return noPreferredTime
	}
	return strings.Join(parts, " ")
}

func userNotes(notes *string) string {
	if notes == nil {
		return noNotes
	}
	text := strings.TrimSpace(propertyBoilerplate.ReplaceAllString(*notes, ""))
	if text == "" {
		return noNotes
	}
	return text
}
