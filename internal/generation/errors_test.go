package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/gnicolai/AI-Courses-Generator/internal/retry"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"canceled", fmt.Errorf("section 2: %w", context.Canceled), KindCanceled},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"authentication", fmt.Errorf("%w: 401", ErrAuthentication), KindAuthentication},
		{"capacity", ErrCapacity, KindCapacity},
		{"invalid response", fmt.Errorf("%w: no json", ErrInvalidResponse), KindMalformed},
		{"too short", ErrExpansionTooShort, KindMalformed},
		{"blocked", ErrContentBlocked, KindMalformed},
		{"chapter not found", ErrChapterNotFound, KindNotFound},
		{"course not found", store.ErrCourseNotFound, KindNotFound},
		{"persistence", fmt.Errorf("save: %w", store.ErrPersistence), KindPersistence},
		{"transaction", store.ErrTransactionFailed, KindPersistence},
		{"transient", ErrTransientFailure, KindTransient},
		{"marked retryable", retry.MarkRetryable(errors.New("flaky")), KindTransient},
		{"unexpected eof", io.ErrUnexpectedEOF, KindTransient},
		{"generation failed", fmt.Errorf("%w: 500", ErrGenerationFailed), KindUnavailable},
		{"unknown", errors.New("something else"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
