package retrier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("zero retries means one attempt", func(t *testing.T) {
		calls := 0
		out, err := Connect(0, 0, func() (string, error) {
			calls++
			return "conn", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "conn", out)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		out, err := Connect(3, 0, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("refused")
			}
			return calls, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, out)
	})

	t.Run("returns the last error", func(t *testing.T) {
		calls := 0
		_, err := Connect(2, 0, func() (int, error) {
			calls++
			return 0, errors.New("refused")
		})

		assert.EqualError(t, err, "refused")
		assert.Equal(t, 3, calls)
	})
}

func TestDo(t *testing.T) {
	calls := 0
	err := Do(1, 0, func() error {
		calls++
		if calls == 1 {
			return errors.New("timeout")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMultiConnects(t *testing.T) {
	n := 0
	conns, err := MultiConnects(3, func() (int, error) {
		n++
		return n, nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, conns)

	_, err = MultiConnects(2, func() (int, error) {
		return 0, errors.New("down")
	}, &RetrierOpts{Count: 1, Interval: 0})
	assert.Error(t, err)
}

type fakeConn struct {
	closed bool
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestMultiConnectsReleasesOnFailure(t *testing.T) {
	var opened []*fakeConn
	_, err := MultiConnects(3, func() (*fakeConn, error) {
		if len(opened) == 2 {
			return nil, errors.New("refused")
		}
		c := new(fakeConn)
		opened = append(opened, c)
		return c, nil
	}, nil)

	require.Error(t, err)
	require.Len(t, opened, 2)
	for _, c := range opened {
		assert.True(t, c.closed)
	}
}
