package replica

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for replica events.
var (
	SignalSchemaInferred = capitan.NewSignal("replica.schema.inferred", "Schema inferred from a sample value")
	SignalInferWarning   = capitan.NewSignal("replica.infer.warning", "Inference fell back to a lossy policy")
	SignalClonerCompiled = capitan.NewSignal("replica.cloner.compiled", "Schema compiled into a cloner")
	SignalSnapshotLossy  = capitan.NewSignal("replica.snapshot.lossy", "Naive collection value could not be snapshotted")
	SignalRegistryHit    = capitan.NewSignal("replica.registry.hit", "Cached cloner reused")
)

// Keys for typed event data.
var (
	KeyKind        = capitan.NewStringKey("kind")
	KeyPath        = capitan.NewStringKey("path")
	KeyMessage     = capitan.NewStringKey("message")
	KeyContentType = capitan.NewStringKey("content_type")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyNodes       = capitan.NewIntKey("nodes")
	KeyHelpers     = capitan.NewIntKey("helpers")
	KeyBindings    = capitan.NewIntKey("bindings")
	KeyError       = capitan.NewErrorKey("error")
)

// emitSchemaInferred emits an event when inference finishes.
func emitSchemaInferred(ctx context.Context, kind string, nodes int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyKind.Field(kind),
		KeyNodes.Field(nodes),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSchemaInferred, fields...)
	} else {
		capitan.Emit(ctx, SignalSchemaInferred, fields...)
	}
}

// emitInferWarning emits an event for an inference diagnostic.
func emitInferWarning(ctx context.Context, path, message string) {
	capitan.Emit(ctx, SignalInferWarning,
		KeyPath.Field(path),
		KeyMessage.Field(message),
	)
}

// emitClonerCompiled emits an event when compilation finishes.
func emitClonerCompiled(ctx context.Context, kind string, nodes, helpers, bindings int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyKind.Field(kind),
		KeyNodes.Field(nodes),
		KeyHelpers.Field(helpers),
		KeyBindings.Field(bindings),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalClonerCompiled, fields...)
	} else {
		capitan.Emit(ctx, SignalClonerCompiled, fields...)
	}
}

// emitSnapshotLossy emits an event when a naive collection drops a value.
func emitSnapshotLossy(ctx context.Context, path, contentType string, err error) {
	capitan.Error(ctx, SignalSnapshotLossy,
		KeyPath.Field(path),
		KeyContentType.Field(contentType),
		KeyError.Field(err),
	)
}

// emitRegistryHit emits an event when Use returns a cached cloner.
func emitRegistryHit(ctx context.Context, kind, contentType string) {
	capitan.Emit(ctx, SignalRegistryHit,
		KeyKind.Field(kind),
		KeyContentType.Field(contentType),
	)
}
