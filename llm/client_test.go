package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableNilIsFalse(t *testing.T) {
	assert.False(t, IsRetryable(nil))
}

func TestIsRetryableContextCanceledIsFalse(t *testing.T) {
	assert.False(t, IsRetryable(context.Canceled))
}

func TestIsRetryablePlainErrorIsFalse(t *testing.T) {
	assert.False(t, IsRetryable(errors.New("boom")))
}
