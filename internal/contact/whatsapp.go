// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

// Package contact builds outbound messaging links the storefront uses to
// reach a buyer. It is pure link construction, not part of the sync
// pipeline.
package contact

import (
	"net/url"
	"strings"
)

// waBaseURL is WhatsApp's click-to-chat endpoint.
const waBaseURL = "https://wa.me/"

// WhatsAppLink builds a click-to-chat deep link for the given phone number
// and prefilled message. The number is reduced to its digits (wa.me rejects
// "+", spaces, and dashes); an empty message yields a bare chat link.
func WhatsAppLink(phone, message string) string {
	digits := digitsOnly(phone)
	link := waBaseURL + digits
	if message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}

// digitsOnly strips everything but ASCII digits from a phone number.
func digitsOnly(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
