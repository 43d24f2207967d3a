package notify

import (
	"fmt"
	"strings"
)

// ReservationURL builds the public deep link to a line's booking page.
func ReservationURL(publicURL string, lineID int) string {
	return fmt.Sprintf("https://%s.saltala.com/#/fila/%d/reserva", publicURL, lineID)
}

// ConfirmationMessage is the text sent to a user right after their
// appointment was booked for them.
func ConfirmationMessage(day, t, reservaURL string) string {
	return fmt.Sprintf(
		"✅ ¡Cita agendada exitosamente!\nDía: %s\nHora: %s\nReserva: %s",
		day, t, reservaURL,
	)
}

// AvailabilityMessage is the broadcast sent to users who want to book by
// hand. Long lists are truncated so the message stays readable on a phone.
func AvailabilityMessage(lineName, firstDay string, times, days []string, reservaURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 ¡Hay disponibilidad para *%s*!\n", lineName)
	fmt.Fprintf(&b, "Primer día: %s\n", firstDay)
	if len(times) > 0 {
		fmt.Fprintf(&b, "Horarios (%d): %s%s\n", len(times), strings.Join(head(times, 5), ", "), ellipsis(times, 5))
	} else {
		b.WriteString("No se pudieron obtener los horarios.\n")
	}
	fmt.Fprintf(&b, "Días (%d): %s%s\n", len(days), strings.Join(head(days, 10), ", "), ellipsis(days, 10))
	fmt.Fprintf(&b, "Reserva manual: %s", reservaURL)
	return b.String()
}

func head(xs []string, n int) []string {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}

func ellipsis(xs []string, n int) string {
	if len(xs) > n {
		return "…"
	}
	return ""
}
