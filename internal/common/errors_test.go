package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"invalid input", NewAppError("BAD_REQUEST", "input_path is required", ErrInvalidInput), codes.InvalidArgument},
		{"missing file", fmt.Errorf("open: %w", os.ErrNotExist), codes.NotFound},
		{"corrupt pdf", fmt.Errorf("%w: malformed xref", ErrOpenDocument), codes.FailedPrecondition},
		{"deadline", fmt.Errorf("ocr: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"already a status", status.Error(codes.Unavailable, "busy"), codes.Unavailable},
		{"output failure", fmt.Errorf("%w: write out.json: %w", ErrInternal, errors.New("disk full")), codes.Internal},
		{"ledger failure", fmt.Errorf("%w: insert run", ErrDatabase), codes.Internal},
		{"anything else", fmt.Errorf("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(ToStatus(tt.err))
			assert.True(t, ok)
			assert.Equal(t, tt.want, st.Code())
		})
	}
	assert.NoError(t, ToStatus(nil))
}

func TestAppErrorUnwrap(t *testing.T) {
	err := NewAppError("CONFIG_ERROR", "bad", ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "CONFIG_ERROR: bad: invalid input", err.Error())
	assert.Equal(t, "NOPE: plain", NewAppError("NOPE", "plain", nil).Error())
}
