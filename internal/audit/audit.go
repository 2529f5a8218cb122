package audit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Action string

const (
	LoginSucceeded Action = "login_success"
	LoginFailed    Action = "login_failure"
	Registered     Action = "register"

	UserCreated   Action = "user_create"
	UserUpdated   Action = "user_update"
	UserDeleted   Action = "user_delete"
	RolesAssigned Action = "user_roles_assign"
	RoleAdded     Action = "user_role_add"
	RoleRemoved   Action = "user_role_remove"

	RoleCreated         Action = "role_create"
	RoleUpdated         Action = "role_update"
	RoleDeleted         Action = "role_delete"
	RoleToggled         Action = "role_toggle"
	PermissionsAssigned Action = "role_permissions_assign"
	PermissionAdded     Action = "role_permission_add"
	PermissionRemoved   Action = "role_permission_remove"

	PermissionCreated Action = "permission_create"
	PermissionUpdated Action = "permission_update"
	PermissionDeleted Action = "permission_delete"
)

// Event is one audit record. It never carries passwords or digests.
type Event struct {
	Action     Action         `json:"action"`
	ActorID    int64          `json:"actor_id,omitempty"`
	Email      string         `json:"email,omitempty"`
	TargetType string         `json:"target_type,omitempty"`
	TargetID   int64          `json:"target_id,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	At         time.Time      `json:"at"`
}

// Recorder receives audit events. Implementations must not fail the caller's
// operation; delivery problems are logged.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

type ctxKey int

const (
	actorKey ctxKey = iota
	requestIDKey
)

// WithActor attaches the authenticated user id to ctx.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey, userID)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// stamp fills the fields derived from ctx and the clock.
func stamp(ctx context.Context, e Event) Event {
	if e.ActorID == 0 {
		if id, ok := ctx.Value(actorKey).(int64); ok {
			e.ActorID = id
		}
	}
	if e.RequestID == "" {
		if id, ok := ctx.Value(requestIDKey).(string); ok {
			e.RequestID = id
		}
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e
}

// LogRecorder writes events to the structured log.
type LogRecorder struct {
	Logger *logrus.Logger
}

func (r LogRecorder) Record(ctx context.Context, e Event) {
	if r.Logger == nil {
		return
	}
	e = stamp(ctx, e)
	fields := logrus.Fields{
		"audit":      string(e.Action),
		"actor_id":   e.ActorID,
		"request_id": e.RequestID,
	}
	if e.TargetType != "" {
		fields["target_type"] = e.TargetType
		fields["target_id"] = e.TargetID
	}
	if e.Email != "" {
		fields["email"] = e.Email
	}
	r.Logger.WithFields(fields).Info("audit")
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

// Multi fans an event out to every recorder.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) {
	e = stamp(ctx, e)
	for _, r := range m {
		r.Record(ctx, e)
	}
}
