package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasgomesc1993/financas-api/internal/config"
	"github.com/lucasgomesc1993/financas-api/internal/logging"
)

func TestEncode(t *testing.T) {
	e := Event{
		Type:       EventInvoiceOverdue,
		InvoiceID:  "inv-1",
		Reference:  "2024-03",
		Amount:     12345,
		OccurredAt: time.Date(2024, 4, 11, 3, 0, 0, 0, time.UTC),
	}

	msg, err := encode(e)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(msg)
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, e, got)
}

func TestNew_LogFallback(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), config.QueueConfig{}, logging.New(&buf, "info", "json"))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), Event{Type: EventInvoicePaid, InvoiceID: "inv-9"}))
	assert.Contains(t, buf.String(), `"invoice_id":"inv-9"`)
	assert.Contains(t, buf.String(), EventInvoicePaid)
}
