package main

import "regexp"

// (?i) -> case-insensitive, hledáme kdekoliv v textu (i uvnitř slova, "not urgent" je taky high).
var urgencyPattern = regexp.MustCompile(`(?i)(urgent|asap|important)`)

// ClassifyUrgency odvodí příznak ze souhrnu emailů.
func ClassifyUrgency(summary string) Urgency {
	if urgencyPattern.MatchString(summary) {
		return UrgencyHigh
	}
	return UrgencyLow
}
