package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	v := Validation("problem %d out of range", 9)
	assert.ErrorIs(t, v, ErrValidation)
	assert.Equal(t, "problem 9 out of range", Message(v))
	assert.Equal(t, "problem 9 out of range", Message(fmt.Errorf("check: %w", v)))

	p := Persistence("upsert score", sql.ErrConnDone)
	assert.ErrorIs(t, p, ErrPersistence)
	assert.ErrorIs(t, p, sql.ErrConnDone)
	assert.Equal(t, "request failed", Message(p))
	assert.Nil(t, Persistence("noop", nil))

	assert.ErrorIs(t, ErrSandboxTimeout, ErrSandboxFailure)
	assert.Equal(t, "execution timed out", Message(ErrSandboxTimeout))
	assert.Equal(t, "grading unavailable", Message(fmt.Errorf("spawn: %w", ErrSandboxFailure)))
	assert.False(t, errors.Is(ErrSandboxFailure, ErrSandboxTimeout))
}
