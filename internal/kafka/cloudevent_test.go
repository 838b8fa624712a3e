package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudEventRoundTrip(t *testing.T) {
	type payload struct {
		InvoiceID string `json:"invoice_id"`
	}

	event, err := NewCloudEvent("service-reservation", "invoice.paid", payload{InvoiceID: "inv-123"})
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, "invoice.paid", event.Type)

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	parsed, err := ParseCloudEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, event.ID, parsed.ID)
	assert.Equal(t, event.Type, parsed.Type)

	var got payload
	require.NoError(t, parsed.ParseData(&got))
	assert.Equal(t, "inv-123", got.InvoiceID)
}

func TestParseCloudEventRejectsGarbage(t *testing.T) {
	_, err := ParseCloudEvent([]byte("not json"))
	require.Error(t, err)
}
