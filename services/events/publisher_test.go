package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(TypeValuationCreated, "AB12CDE", "SuperCar Valuations")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeValuationCreated, event.Type)
	assert.Equal(t, "AB12CDE", event.VRM)
	assert.Equal(t, "SuperCar Valuations", event.Provider)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestEvent_WithDataDoesNotMutateOriginal(t *testing.T) {
	base := NewEvent(TypeFailoverActivated, "", "").WithData("failed_requests", 3)
	extended := base.WithData("total_requests", 4)

	assert.Len(t, base.Data, 1)
	assert.Len(t, extended.Data, 2)
	assert.Equal(t, 3, extended.Data["failed_requests"])
}

func TestNATSPublisher_Publish(t *testing.T) {
	c := &fakeConn{}
	p := newNATSPublisher(c, "valuations", zap.NewNop())

	event := NewEvent(TypeValuationCreated, "AB12CDE", "SuperCar Valuations").WithData("fallback", false)
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, c.subjects, 1)
	assert.Equal(t, "valuations.valuation.created", c.subjects[0])

	var decoded Event
	require.NoError(t, json.Unmarshal(c.payloads[0], &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "AB12CDE", decoded.VRM)
	assert.Equal(t, false, decoded.Data["fallback"])
}

func TestNATSPublisher_Subject(t *testing.T) {
	assert.Equal(t, "failover.reset", newNATSPublisher(&fakeConn{}, "", nil).Subject(TypeFailoverReset))
	assert.Equal(t, "prod.failover.reset", newNATSPublisher(&fakeConn{}, "prod", nil).Subject(TypeFailoverReset))
}

func TestNATSPublisher_PublishError(t *testing.T) {
	c := &fakeConn{err: errors.New("nats: connection closed")}
	p := newNATSPublisher(c, "valuations", zap.NewNop())

	err := p.Publish(context.Background(), NewEvent(TypeValuationFailed, "AB12CDE", ""))
	assert.ErrorContains(t, err, "valuations.valuation.failed")
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	c := &fakeConn{}
	p := newNATSPublisher(c, "valuations", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Publish(ctx, NewEvent(TypeValuationCreated, "A", "")), context.Canceled)
	assert.Empty(t, c.subjects)
}

func TestNATSPublisher_Close(t *testing.T) {
	c := &fakeConn{}
	require.NoError(t, newNATSPublisher(c, "v", nil).Close())
	assert.True(t, c.drained)
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "valuations", zap.NewNop())
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), NewEvent(TypeValuationCreated, "A", "")))
	assert.NoError(t, p.Close())
}
