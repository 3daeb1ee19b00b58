package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFatal(t *testing.T) {
	assert.True(t, KindLaunch.Fatal())
	assert.True(t, KindContentNotRendered.Fatal())
	assert.True(t, KindUnexpected.Fatal())
	assert.False(t, KindReadyFlagTimeout.Fatal())
	assert.False(t, KindCleanup.Fatal())
}

func TestExportErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"none", nil, ""},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), "ETIMEDOUT"},
		{"canceled", context.Canceled, "ECANCELED"},
		{"missing file", &os.PathError{Op: "exec", Path: "/opt/chrome", Err: os.ErrNotExist}, "ENOENT"},
		{"errno", &os.SyscallError{Syscall: "fork", Err: syscall.EAGAIN}, fmt.Sprintf("ERRNO_%d", int(syscall.EAGAIN))},
		{"plain", errors.New("x"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ee := newExportError(KindLaunch, tt.err, "launch")
			assert.Equal(t, tt.code, ee.Code())
		})
	}
}

func TestExportErrorNativeType(t *testing.T) {
	ee := newExportError(KindNavigation, nil, "no response")
	assert.Equal(t, "NavigationFailure", ee.NativeType())
	assert.Equal(t, "NavigationFailure: no response", ee.Error())

	ee = newExportError(KindRender, &os.PathError{Op: "open", Path: "x", Err: syscall.ENOENT}, "print")
	assert.Equal(t, "syscall.Errno", ee.NativeType())

	ee = newExportError(KindRender, errors.Join(context.DeadlineExceeded, errors.New("other")), "print")
	assert.Equal(t, "context.deadlineExceededError", ee.NativeType())
}

func TestAsExportError(t *testing.T) {
	assert.Nil(t, AsExportError(nil))

	inner := newExportError(KindContentNotRendered, nil, "marker")
	assert.Same(t, inner, AsExportError(fmt.Errorf("wrapped: %w", inner)))

	foreign := AsExportError(errors.New("strange"))
	assert.Equal(t, KindUnexpected, foreign.Kind)
	assert.Equal(t, "strange", foreign.Message)
}
