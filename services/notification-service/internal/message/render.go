// Package message renders the human-readable notices for each event the
// service delivers. Rendering is pure so templates are testable without
// a broker or an SMTP server.
package message

import (
	"fmt"
	"strings"
)

type Rendered struct {
	Subject string
	Body    string
}

// Rescheduled passes the studio's message through as-is; the calendar
// already composed the exact sentence shown in the confirmation dialog.
func Rescheduled(studio, text string) Rendered {
	return Rendered{
		Subject: "Shoot rescheduled",
		Body:    prefix(studio, text),
	}
}

// ReminderDue renders the shoot-day reminder.
func ReminderDue(studio, clientName, shootDate, startTime, address string) Rendered {
	var b strings.Builder
	fmt.Fprintf(&b, "Reminder: %s's shoot is on %s", clientName, shootDate)
	if startTime != "" {
		fmt.Fprintf(&b, " at %s", startTime)
	}
	if address != "" {
		fmt.Fprintf(&b, " (%s)", address)
	}
	b.WriteString(".")
	return Rendered{
		Subject: "Upcoming shoot reminder",
		Body:    prefix(studio, b.String()),
	}
}

// InvoicePaid renders the payment confirmation.
func InvoicePaid(studio, clientName string, amountCents int64, currency string) Rendered {
	return Rendered{
		Subject: "Invoice paid",
		Body: prefix(studio, fmt.Sprintf("Payment received from %s: %s.",
			clientName, FormatAmount(amountCents, currency))),
	}
}

// FormatAmount renders cents as a currency string, e.g. "$450.00 USD".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" {
		cur = "USD"
	}
	symbol := ""
	if cur == "USD" {
		symbol = "$"
	}
	return fmt.Sprintf("%s%s%d.%02d %s", sign, symbol, cents/100, cents%100, cur)
}

func prefix(studio, text string) string {
	studio = strings.TrimSpace(studio)
	if studio == "" {
		return text
	}
	return fmt.Sprintf("[%s] %s", studio, text)
}
