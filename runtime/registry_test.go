package runtime

import (
	"context"
	"testing"

	"messenger/contract"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	consumed []contract.PushEvent
}

func (s *fakeSink) Consume(_ context.Context, e contract.PushEvent) error {
	s.consumed = append(s.consumed, e)
	return nil
}

func TestRegistry_Register_OneUserOneConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.New()
	sink := &fakeSink{}

	// Given no connection is registered
	req.Empty(registry.SinksFor(userID))

	// When the user connects
	registry.Register(userID, uuid.New(), sink)

	// Then their sink resolves
	sinks := registry.SinksFor(userID)
	req.Len(sinks, 1)
	req.Same(sink, sinks[0])
}

func TestRegistry_Register_OneUserMultipleDevices(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.New()
	phone := &fakeSink{}
	laptop := &fakeSink{}

	// When the same user connects twice
	registry.Register(userID, uuid.New(), phone)
	registry.Register(userID, uuid.New(), laptop)

	// Then both connections resolve independently
	sinks := registry.SinksFor(userID)
	req.Len(sinks, 2)
	req.Contains(sinks, contract.EventSink(phone))
	req.Contains(sinks, contract.EventSink(laptop))
}

func TestRegistry_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.New()
	connID := uuid.New()

	// Given a registered connection
	registry.Register(userID, connID, &fakeSink{})
	req.Len(registry.SinksFor(userID), 1)

	// When it disconnects
	registry.Unregister(connID)

	// Then nothing resolves for the user anymore
	req.Empty(registry.SinksFor(userID))

	// And unregistering again is harmless
	registry.Unregister(connID)
}

func TestRegistry_SinksFor_MixedOnlineOffline(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	online := uuid.New()
	offline := uuid.New()
	sink := &fakeSink{}

	registry.Register(online, uuid.New(), sink)

	// Offline users contribute nothing, never an error
	sinks := registry.SinksFor(online, offline)
	req.Len(sinks, 1)
	req.Empty(registry.SinksFor(offline))
}
