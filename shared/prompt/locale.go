package prompt

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Short numeric date layouts, matched first by full tag and then by base language.
var dateLayouts = map[string]string{
	"en-US": "1/2/2006",
	"en-GB": "02/01/2006",
	"en-AU": "02/01/2006",
	"en-CA": "2006-01-02",
	"en":    "1/2/2006",
	"de":    "2.1.2006",
	"fr":    "02/01/2006",
	"es":    "2/1/2006",
	"it":    "2/1/2006",
	"pt":    "02/01/2006",
	"nl":    "2-1-2006",
	"pl":    "2.01.2006",
	"ru":    "02.01.2006",
	"ja":    "2006/1/2",
	"zh":    "2006/1/2",
	"ko":    "2006. 1. 2.",
}

const fallbackDateLayout = "2006-01-02"

// Locale formats numbers and dates the way a given language renders them.
type Locale struct {
	tag        language.Tag
	printer    *message.Printer
	dateLayout string
	location   *time.Location
}

// NewLocale builds a Locale for tag, rendering dates in loc (UTC when nil).
func NewLocale(tag language.Tag, loc *time.Location) *Locale {
	if loc == nil {
		loc = time.UTC
	}
	return &Locale{
		tag:        tag,
		printer:    message.NewPrinter(tag),
		dateLayout: layoutFor(tag),
		location:   loc,
	}
}

// DefaultLocale is en-US in UTC.
func DefaultLocale() *Locale {
	return NewLocale(language.AmericanEnglish, time.UTC)
}

// ParseLocale accepts a BCP 47 tag such as "en-US" and an IANA zone name.
func ParseLocale(tag, zone string) (*Locale, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", tag, err)
	}
	loc := time.UTC
	if zone != "" {
		loc, err = time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", zone, err)
		}
	}
	return NewLocale(t, loc), nil
}

func (l *Locale) Tag() language.Tag { return l.tag }

// Integer renders n with the locale's grouping separator.
func (l *Locale) Integer(n int64) string {
	return l.printer.Sprintf("%d", n)
}

// Date renders the calendar date of t in the locale's short numeric form.
func (l *Locale) Date(t time.Time) string {
	return t.In(l.location).Format(l.dateLayout)
}

func layoutFor(tag language.Tag) string {
	if layout, ok := dateLayouts[tag.String()]; ok {
		return layout
	}
	base, _ := tag.Base()
	if layout, ok := dateLayouts[base.String()]; ok {
		return layout
	}
	return fallbackDateLayout
}
