// Package format renders invoice numbers from a template.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const DefaultInvoiceNumberTemplate = "SI-{YYYY}{MM}-{SEQ5}"

// FormatInvoiceNumber expands template for an invoice dated issuedAt with
// sequence seq. Supported tokens: {YYYY} {YY} {MM} {DD} {SEQ} and {SEQn},
// the sequence zero-padded to n digits.
func FormatInvoiceNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}

	out := template
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in invoice number template: %s", out)
	}
	return out, nil
}

// ValidateTemplate reports whether template expands cleanly.
func ValidateTemplate(template string) error {
	_, err := FormatInvoiceNumber(template, time.Unix(0, 0).UTC(), 1)
	return err
}
