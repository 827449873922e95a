// Copyright 2025 BrightClass
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package redact scrubs personally identifiable information from prompt
// text before it leaves the trust boundary. Detection is regex-first with
// per-type validators to cut false positives; every confirmed match is
// replaced with a fixed placeholder.
package redact

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Placeholder replaces every confirmed PII match. It contains no digits
// or address characters, so redaction is idempotent: a second pass over
// already-redacted text finds nothing.
const Placeholder = "[REDACTED]"

// PIIType identifies the category of a detector.
type PIIType string

const (
	PIITypeEmail      PIIType = "email"
	PIITypeNationalID PIIType = "national_id"
	PIITypePhone      PIIType = "phone"
)

// pattern pairs a compiled regex with an optional validator. The validator
// confirms a raw regex hit before it is replaced.
type pattern struct {
	Type      PIIType
	Pattern   *regexp.Regexp
	Validator func(match string) bool
}

// Redactor applies an ordered list of PII detectors to text.
// The zero value is not usable; construct with New.
type Redactor struct {
	patterns []*pattern
}

// New creates a Redactor with all detectors enabled.
//
// Detector order matters: the national ID detector runs before the phone
// detector so a 13-digit identity number is never half-consumed as a
// phone number.
func New() *Redactor {
	return &Redactor{
		patterns: []*pattern{
			{
				Type:      PIITypeEmail,
				Pattern:   regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`),
				Validator: validateEmail,
			},
			{
				Type:      PIITypeNationalID,
				Pattern:   regexp.MustCompile(`\b\d{13}\b`),
				Validator: validateNationalID,
			},
			{
				Type: PIITypePhone,
				// Local 0XX numbers with optional separators, and
				// international +CC numbers.
				Pattern:   regexp.MustCompile(`(?:\+\d{1,3}[-.\s]?\d{1,4}[-.\s]?\d{3}[-.\s]?\d{3,6})|\b0\d{2}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
				Validator: validatePhone,
			},
		},
	}
}

// Redact replaces every confirmed PII match in text with Placeholder and
// returns the scrubbed text together with the total replacement count
// across all detector passes. Pure function, no I/O.
func (r *Redactor) Redact(text string) (string, int) {
	count := 0
	for _, p := range r.patterns {
		text = p.Pattern.ReplaceAllStringFunc(text, func(match string) string {
			if p.Validator != nil && !p.Validator(match) {
				return match
			}
			count++
			return Placeholder
		})
	}
	return text, count
}

// validateEmail confirms basic email structure beyond the regex hit.
func validateEmail(match string) bool {
	atIndex := strings.LastIndex(match, "@")
	if atIndex < 1 || atIndex >= len(match)-4 {
		return false
	}

	domain := match[atIndex+1:]
	lastDot := strings.LastIndex(domain, ".")
	if lastDot < 0 || len(domain)-lastDot-1 < 2 {
		return false
	}

	if strings.Contains(match, "..") || strings.HasPrefix(match, ".") {
		return false
	}

	return true
}

// validateNationalID confirms a 13-digit national identity number:
// positions 1-6 must encode a valid YYMMDD date and the final digit must
// satisfy the Luhn checksum used by the issuing registry.
func validateNationalID(match string) bool {
	if len(match) != 13 {
		return false
	}

	month, _ := strconv.Atoi(match[2:4])
	day, _ := strconv.Atoi(match[4:6])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}

	return luhnCheck(match)
}

// validatePhone filters out obvious non-numbers (too short, too long,
// all-repeated digits).
func validatePhone(match string) bool {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, match)

	if len(digits) < 9 || len(digits) > 15 {
		return false
	}

	return !isRepeatedDigits(digits)
}

// luhnCheck performs the Luhn algorithm check over a digit string.
func luhnCheck(number string) bool {
	sum := 0
	alternate := false

	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')

		if alternate {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit
		alternate = !alternate
	}

	return sum%10 == 0
}

// isRepeatedDigits checks if a string is all the same digit.
func isRepeatedDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	first := rune(s[0])
	for _, ch := range s {
		if ch != first {
			return false
		}
	}
	return true
}
