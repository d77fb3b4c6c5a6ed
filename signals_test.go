package replica

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitSchemaInferred_Success(_ *testing.T) {
	// Should not panic
	emitSchemaInferred(context.Background(), "record", 4, 100*time.Microsecond, nil)
}

func TestEmitSchemaInferred_Error(_ *testing.T) {
	emitSchemaInferred(context.Background(), "", 0, 100*time.Microsecond, errors.New("test error"))
}

func TestEmitInferWarning(_ *testing.T) {
	emitInferWarning(context.Background(), "input.items", "sequence has more than one element, inferring from the first")
}

func TestEmitClonerCompiled_Success(_ *testing.T) {
	emitClonerCompiled(context.Background(), "record", 6, 1, 2, 100*time.Microsecond, nil)
}

func TestEmitClonerCompiled_Error(_ *testing.T) {
	emitClonerCompiled(context.Background(), "sequence", 0, 0, 0, 100*time.Microsecond, errors.New("test error"))
}

func TestEmitSnapshotLossy(_ *testing.T) {
	emitSnapshotLossy(context.Background(), "input.tags[]", "application/json", errors.New("unsupported type: func()"))
}

func TestEmitRegistryHit(_ *testing.T) {
	emitRegistryHit(context.Background(), "record", "application/json")
}

func TestSignalVariables(t *testing.T) {
	// Verify signals are properly initialized
	signals := []struct {
		name   string
		signal interface{}
	}{
		{"SignalSchemaInferred", SignalSchemaInferred},
		{"SignalInferWarning", SignalInferWarning},
		{"SignalClonerCompiled", SignalClonerCompiled},
		{"SignalSnapshotLossy", SignalSnapshotLossy},
		{"SignalRegistryHit", SignalRegistryHit},
	}

	for _, s := range signals {
		if s.signal == nil {
			t.Errorf("%s is nil", s.name)
		}
	}
}

func TestKeyVariables(t *testing.T) {
	// Verify keys are properly initialized
	keys := []struct {
		name string
		key  interface{}
	}{
		{"KeyKind", KeyKind},
		{"KeyPath", KeyPath},
		{"KeyMessage", KeyMessage},
		{"KeyContentType", KeyContentType},
		{"KeyDuration", KeyDuration},
		{"KeyNodes", KeyNodes},
		{"KeyHelpers", KeyHelpers},
		{"KeyBindings", KeyBindings},
		{"KeyError", KeyError},
	}

	for _, k := range keys {
		if k.key == nil {
			t.Errorf("%s is nil", k.name)
		}
	}
}
