package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type shutdownRecorder struct {
	steps []string
	err   error
}

func (r *shutdownRecorder) Shutdown(context.Context) error {
	r.steps = append(r.steps, "server")
	return r.err
}

func (r *shutdownRecorder) Close() {
	r.steps = append(r.steps, "service")
}

func (r *shutdownRecorder) stopAudit() {
	r.steps = append(r.steps, "audit")
}

func TestShutdown_StopsAuditWriterLast(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "clean shutdown"},
		{name: "server shutdown times out", err: context.DeadlineExceeded, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &shutdownRecorder{err: tt.err}

			err := shutdown(context.Background(), rec, rec, rec.stopAudit)

			if tt.wantErr {
				assert.True(t, errors.Is(err, tt.err))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{"server", "service", "audit"}, rec.steps)
		})
	}
}
