package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meta/whatsapp/v24.0/555000/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret", PhoneNumberID: "555000"})
	require.NoError(t, c.SendText(context.Background(), "+56911112222", "hola"))

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "+56911112222", got["to"])
	assert.Equal(t, "text", got["type"])
	assert.Equal(t, map[string]any{"body": "hola"}, got["text"])
}

func TestSendTextErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret", PhoneNumberID: "555000"})
	err := c.SendText(context.Background(), "+56911112222", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSendTextMockMode(t *testing.T) {
	// no credentials: nothing hits the network, the send "succeeds"
	c := New(Config{BaseURL: "http://unused"})
	assert.False(t, c.Configured())
	require.NoError(t, c.SendText(context.Background(), "+56911112222", "hola"))
}

func TestSendTemplate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret", PhoneNumberID: "555000"})
	err := c.SendTemplate(context.Background(), "+56911112222", "seguimiento",
		[]string{"Ana"}, []string{"KEEP", "STOP"})
	require.NoError(t, err)

	assert.Equal(t, "template", got["type"])
	tpl := got["template"].(map[string]any)
	assert.Equal(t, "seguimiento", tpl["name"])
	assert.Equal(t, map[string]any{"code": "es"}, tpl["language"])

	components := tpl["components"].([]any)
	require.Len(t, components, 3)

	body := components[0].(map[string]any)
	assert.Equal(t, "body", body["type"])

	btn := components[1].(map[string]any)
	assert.Equal(t, "button", btn["type"])
	assert.Equal(t, "quick_reply", btn["sub_type"])
	assert.Equal(t, "0", btn["index"])
	params := btn["parameters"].([]any)
	assert.Equal(t, map[string]any{"type": "payload", "payload": "KEEP"}, params[0])

	btn2 := components[2].(map[string]any)
	assert.Equal(t, "1", btn2["index"])
}

func TestReservationURL(t *testing.T) {
	assert.Equal(t,
		"https://lobarnechea.saltala.com/#/fila/1768/reserva",
		ReservationURL("lobarnechea", 1768))
}

func TestConfirmationMessage(t *testing.T) {
	msg := ConfirmationMessage("2025-03-08", "09:30", "https://x/#/fila/1/reserva")
	assert.Contains(t, msg, "✅ ¡Cita agendada exitosamente!")
	assert.Contains(t, msg, "Día: 2025-03-08")
	assert.Contains(t, msg, "Hora: 09:30")
	assert.Contains(t, msg, "Reserva: https://x/#/fila/1/reserva")
}

func TestAvailabilityMessageTruncates(t *testing.T) {
	times := []string{"09:00", "09:20", "09:40", "10:00", "10:20", "10:40"}
	days := []string{"2025-03-08", "2025-03-09"}
	msg := AvailabilityMessage("Renovación", "2025-03-08", times, days, "https://x")

	assert.Contains(t, msg, "¡Hay disponibilidad para *Renovación*!")
	assert.Contains(t, msg, "Horarios (6): 09:00, 09:20, 09:40, 10:00, 10:20…")
	assert.NotContains(t, msg, "10:40")
	assert.Contains(t, msg, "Días (2): 2025-03-08, 2025-03-09\n")
	assert.Contains(t, msg, "Reserva manual: https://x")
}

func TestAvailabilityMessageWithoutTimes(t *testing.T) {
	msg := AvailabilityMessage("Renovación", "2025-03-08", nil, []string{"2025-03-08"}, "https://x")
	assert.Contains(t, msg, "No se pudieron obtener los horarios.")
}
