package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"cancelled run", fmt.Errorf("run 2: %w", context.Canceled), false},
		{"invariant failure", errors.New("invariant violated"), true},
		{"deadline", fmt.Errorf("run 1: %w", context.DeadlineExceeded), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stopError(tt.err) != nil)
		})
	}
}
