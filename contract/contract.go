package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// PushEvent is an outbound event addressed to every live connection of its
// recipients. Events carry their own wire name and payload shape.
type PushEvent interface {
	Name() string
	Recipients() []uuid.UUID
}

// EventSink delivers one push event to a single live connection.
type EventSink interface {
	Consume(ctx context.Context, e PushEvent) error
}

// IRegistry maps authenticated users to their live connections.
// A user may hold several connections at once (multi-device).
type IRegistry interface {
	Register(userID uuid.UUID, connID uuid.UUID, sink EventSink)
	Unregister(connID uuid.UUID)
	SinksFor(userIDs ...uuid.UUID) []EventSink
}
