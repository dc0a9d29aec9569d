package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/alerting"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIngester struct {
	samples []models.Sample
	result  *alerting.ProcessResult
	err     error
}

func (f *fakeIngester) Ingest(_ context.Context, s models.Sample) (*alerting.ProcessResult, error) {
	f.samples = append(f.samples, s)
	return f.result, f.err
}

func newTestConsumer(ing Ingester) *MQTTConsumer {
	c := NewMQTTConsumer(nil, "", 1, ing, zap.NewNop())
	c.now = func() time.Time { return time.UnixMilli(5000) }
	return c
}

func TestMQTTConsumer_DefaultTopic(t *testing.T) {
	c := NewMQTTConsumer(nil, "", 1, &fakeIngester{}, zap.NewNop())
	assert.Equal(t, DefaultSampleTopic, c.topic)
}

func TestMQTTConsumer_HandleMessage(t *testing.T) {
	ing := &fakeIngester{result: &alerting.ProcessResult{AlertID: "a1"}}
	c := newTestConsumer(ing)

	payload := []byte(`{"timestamp":1234,"accel":{"x":0,"y":0,"z":17},"gyro":{"x":1,"y":2,"z":3},"context":"in_hand"}`)
	require.NoError(t, c.handleMessage("fall/dev1/samples", payload))

	require.Len(t, ing.samples, 1)
	s := ing.samples[0]
	assert.Equal(t, int64(1234), s.Timestamp)
	assert.Equal(t, 17.0, s.Accel.Z)
	assert.Equal(t, 3.0, s.Gyro.Z)
	assert.Equal(t, "in_hand", s.Context)
	assert.Nil(t, s.Lat)
}

func TestMQTTConsumer_MissingTimestampUsesNow(t *testing.T) {
	ing := &fakeIngester{}
	c := newTestConsumer(ing)

	require.NoError(t, c.handleMessage("fall/dev1/samples", []byte(`{"accel":{"x":0,"y":0,"z":9.8}}`)))
	require.Len(t, ing.samples, 1)
	assert.Equal(t, int64(5000), ing.samples[0].Timestamp)
}

func TestMQTTConsumer_MalformedPayloadDropped(t *testing.T) {
	ing := &fakeIngester{}
	c := newTestConsumer(ing)

	err := c.handleMessage("fall/dev1/samples", []byte(`{"accel":`))
	require.Error(t, err)
	assert.Empty(t, ing.samples)
}

func TestMQTTConsumer_IngestError(t *testing.T) {
	ing := &fakeIngester{err: alerting.ErrPersistence}
	c := newTestConsumer(ing)

	err := c.handleMessage("fall/dev1/samples", []byte(`{"timestamp":1}`))
	assert.True(t, errors.Is(err, alerting.ErrPersistence))
}
