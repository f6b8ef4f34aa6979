package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry("test-secret", 24*time.Hour)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestCreateAndValidate(t *testing.T) {
	r, _ := newTestRegistry()

	s, err := r.Create("acc-1", "a@x.com", "user", "phone")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, "acc-1", s.OwnerID)
	assert.True(t, r.Validate(s.Token))
}

func TestValidateUnknownToken(t *testing.T) {
	r, _ := newTestRegistry()
	assert.False(t, r.Validate("nope"))
}

func TestExpiredSessionEvictedLazily(t *testing.T) {
	r, now := newTestRegistry()

	s, err := r.Create("acc-1", "a@x.com", "user", "")
	require.NoError(t, err)

	*now = now.Add(24*time.Hour + time.Second)
	assert.False(t, r.Validate(s.Token))
	// Evicted, not just rejected.
	assert.Empty(t, r.ActiveFor("acc-1"))
}

func TestInvalidate(t *testing.T) {
	r, _ := newTestRegistry()

	s, err := r.Create("acc-1", "a@x.com", "user", "")
	require.NoError(t, err)

	r.Invalidate(s.Token)
	assert.False(t, r.Validate(s.Token))
}

func TestInvalidateOwnerRemovesAll(t *testing.T) {
	r, _ := newTestRegistry()

	s1, err := r.Create("acc-1", "a@x.com", "user", "laptop")
	require.NoError(t, err)
	s2, err := r.Create("acc-1", "a@x.com", "user", "phone")
	require.NoError(t, err)
	other, err := r.Create("acc-2", "b@x.com", "user", "")
	require.NoError(t, err)

	r.InvalidateOwner("acc-1")

	assert.False(t, r.Validate(s1.Token))
	assert.False(t, r.Validate(s2.Token))
	assert.True(t, r.Validate(other.Token))
}

func TestActiveFor(t *testing.T) {
	r, _ := newTestRegistry()

	_, err := r.Create("acc-1", "a@x.com", "user", "laptop")
	require.NoError(t, err)
	_, err = r.Create("acc-1", "a@x.com", "user", "phone")
	require.NoError(t, err)

	active := r.ActiveFor("acc-1")
	assert.Len(t, active, 2)
}

func TestConcurrentUse(t *testing.T) {
	r := NewRegistry("test-secret", time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Create("acc-1", "a@x.com", "user", "")
			if err != nil {
				t.Error(err)
				return
			}
			r.Validate(s.Token)
			r.ActiveFor("acc-1")
			r.Invalidate(s.Token)
		}()
	}
	wg.Wait()
}
