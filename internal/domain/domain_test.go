package domain

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyAdmins(t *testing.T) {
	var c Company

	c.AddAdmin("u1")
	c.AddAdmin("u2")
	c.AddAdmin("u1")

	assert.Equal(t, []string{"u1", "u2"}, c.Admins)
	assert.Equal(t, "u1", c.LegacyAdminID)
	assert.True(t, c.IsAdmin("u2"))
	assert.False(t, c.IsAdmin(""))
	assert.True(t, c.CanManage(Identity{Subject: "u2"}))
	assert.True(t, c.CanManage(Identity{Subject: "x", Staff: true}))
	assert.False(t, c.CanManage(Identity{Subject: "x"}))
}

func TestCompanyNormalizeAdmins_LegacyOnly(t *testing.T) {
	c := Company{LegacyAdminID: "legacy"}

	c.NormalizeAdmins()

	assert.True(t, c.IsAdmin("legacy"))
	assert.Equal(t, []string{"legacy"}, c.Admins)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCompleted))
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
	assert.False(t, CanTransition(StatusPending, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusPending))
}

func TestStatusOccupies(t *testing.T) {
	assert.True(t, StatusPending.Occupies())
	assert.True(t, StatusConfirmed.Occupies())
	assert.False(t, StatusCancelled.Occupies())
	assert.False(t, StatusCompleted.Occupies())
}

func TestStatusEarns(t *testing.T) {
	for _, s := range []ReservationStatus{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted} {
		assert.Equal(t, slices.Contains(EarningStatuses(), string(s)), s.Earns(), s)
	}
	assert.True(t, StatusCompleted.Earns())
	assert.False(t, StatusPending.Earns())
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", StopNotFound("origin", "atakpame"))

	assert.ErrorIs(t, err, ErrStopNotFound)
	assert.False(t, errors.Is(err, ErrInvalidSegment))

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "origin", e.Field)
	assert.Equal(t, CodeStopNotFound, e.Code)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("15/10/2026")
	assert.Error(t, err)
}
