package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StampsIDAndTime(t *testing.T) {
	before := time.Now().UTC()
	e := New(Created, "1", map[string]string{"name": "x"})

	assert.Len(t, e.ID, 27)
	assert.Equal(t, Created, e.Kind)
	assert.Equal(t, "1", e.SubjectID)
	assert.False(t, e.OccurredAt.Before(before.Truncate(time.Millisecond)))
	assert.NotEqual(t, e.ID, New(Created, "1", nil).ID)
}

func TestEnvelope_MarshalJSON(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Envelope{Kind: Updated, SubjectID: "77", Payload: map[string]any{"price": 9.5}, OccurredAt: at}

	body, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_type":"Updated","product_id":"77","payload":{"price":9.5},"timestamp":1709294400000}`, string(body))
}

func TestEnvelope_MarshalJSONOmitsNilPayload(t *testing.T) {
	e := Envelope{Kind: Deleted, SubjectID: "77", OccurredAt: time.UnixMilli(5)}

	body, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_type":"Deleted","product_id":"77","timestamp":5}`, string(body))
}

func TestEnvelope_MarshalJSONRejectsUnknownKind(t *testing.T) {
	_, err := json.Marshal(Envelope{Kind: "Archived", SubjectID: "1"})
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	e := New(Created, "42", nil)

	rec, err := encode("product-events", e)
	require.NoError(t, err)
	assert.Equal(t, "product-events", rec.Topic)
	assert.Equal(t, []byte("42"), rec.Key)
	assert.Equal(t, "Created", rec.Headers["event_type"])
	assert.Equal(t, e.ID, rec.Headers["event_id"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, "42", decoded["product_id"])
}

func TestEncode_UnserializablePayload(t *testing.T) {
	_, err := encode("t", New(Created, "1", make(chan int)))
	assert.Error(t, err)
}
