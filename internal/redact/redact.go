// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redact masks personally identifiable values in log output.
package redact

import (
	"regexp"
	"strings"
)

// PIIFields are the keys whose values never reach a log sink in clear.
var PIIFields = []string{"name", "email", "phone", "ssn", "password"}

// Default redaction and separator used by Formatter and Handler.
const (
	DefaultRedaction = "***"
	DefaultSeparator = ";"
)

// FilterDatum replaces the value of every field=value pair in message whose
// field is listed in fields. A value runs up to the next separator character.
//
//	FilterDatum([]string{"email"}, "***", "name=bob;email=a@b.c;", ";")
//	// "name=bob;email=***;"
func FilterDatum(fields []string, redaction, message, separator string) string {
	if len(fields) == 0 {
		return message
	}
	return compile(fields, separator).ReplaceAllString(message, "${field}="+escapeReplacement(redaction))
}

func compile(fields []string, separator string) *regexp.Regexp {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	stop := `\n`
	if separator != "" {
		stop = regexp.QuoteMeta(separator) + stop
	}
	return regexp.MustCompile(`(?P<field>` + strings.Join(quoted, "|") + `)=[^` + stop + `]*`)
}

// escapeReplacement keeps a literal "$" in the redaction from being read as
// a group reference.
func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

// Formatter redacts rendered log lines. Its pattern is compiled once.
type Formatter struct {
	redaction string
	pattern   *regexp.Regexp
}

// NewFormatter returns a Formatter for fields using the default redaction and
// separator.
func NewFormatter(fields []string) *Formatter {
	return NewFormatterWith(fields, DefaultRedaction, DefaultSeparator)
}

// NewFormatterWith returns a Formatter with an explicit redaction and separator.
func NewFormatterWith(fields []string, redaction, separator string) *Formatter {
	f := &Formatter{redaction: escapeReplacement(redaction)}
	if len(fields) > 0 {
		f.pattern = compile(fields, separator)
	}
	return f
}

// Format returns line with every listed field's value redacted.
func (f *Formatter) Format(line string) string {
	if f.pattern == nil {
		return line
	}
	return f.pattern.ReplaceAllString(line, "${field}="+f.redaction)
}
