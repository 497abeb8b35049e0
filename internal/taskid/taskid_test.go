package taskid_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practice_service/internal/taskid"
)

func TestGenerate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		id, err := taskid.Generate("20250910", 3)
		require.NoError(t, err)
		require.Equal(t, "20250910_3", id)
	})

	t.Run("Rejects bad date key", func(t *testing.T) {
		for _, key := range []string{"", "2025091", "202509100", "2025091a"} {
			_, err := taskid.Generate(key, 1)
			require.Error(t, err, "key %q", key)
		}
	})

	t.Run("Rejects non-positive sequence", func(t *testing.T) {
		_, err := taskid.Generate("20250910", 0)
		require.Error(t, err)
		_, err = taskid.Generate("20250910", -2)
		require.Error(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	dates := []string{"20240101", "20250910", "20251231"}
	for _, d := range dates {
		for _, seq := range []int{1, 2, 17, 9999} {
			id, err := taskid.Generate(d, seq)
			require.NoError(t, err)

			date, err := taskid.DateOf(id)
			require.NoError(t, err)
			assert.Equal(t, d, date)
			assert.Equal(t, seq, taskid.SequenceOf(id))
		}
	}
}

func TestDateOf(t *testing.T) {
	_, err := taskid.DateOf("20250910")
	require.Error(t, err)

	_, err = taskid.DateOf("")
	require.Error(t, err)

	// Extra separators leave everything after the first one to the sequence.
	date, err := taskid.DateOf("20250910_1_x")
	require.NoError(t, err)
	require.Equal(t, "20250910", date)
}

func TestSequenceOfFallback(t *testing.T) {
	// Malformed or legacy ids resolve to sequence 1 rather than erroring.
	assert.Equal(t, 1, taskid.SequenceOf("20250910"))
	assert.Equal(t, 1, taskid.SequenceOf("20250910_"))
	assert.Equal(t, 1, taskid.SequenceOf("20250910_abc"))
	assert.Equal(t, 1, taskid.SequenceOf("20250910_-4"))
}

func TestNextSequence(t *testing.T) {
	t.Run("Empty set starts at one", func(t *testing.T) {
		assert.Equal(t, 1, taskid.NextSequence(nil, "20250910"))
	})

	t.Run("Ignores other dates", func(t *testing.T) {
		ids := []string{"20250909_1", "20250909_2", "20250910_1"}
		assert.Equal(t, 2, taskid.NextSequence(ids, "20250910"))
	})

	t.Run("Strictly greater than every existing sequence", func(t *testing.T) {
		var ids []string
		for seq := 1; seq <= 7; seq++ {
			ids = append(ids, fmt.Sprintf("20250910_%d", seq))
		}
		next := taskid.NextSequence(ids, "20250910")
		for _, id := range ids {
			assert.Greater(t, next, taskid.SequenceOf(id))
		}
		assert.Equal(t, 8, next)
	})

	t.Run("Survives gaps and malformed ids", func(t *testing.T) {
		ids := []string{"20250910_2", "20250910_9", "20250910_bogus"}
		assert.Equal(t, 10, taskid.NextSequence(ids, "20250910"))
	})
}

func TestDateKeys(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	key := taskid.FormatDateKey(time.Date(2025, 9, 10, 23, 30, 0, 0, loc))
	require.Equal(t, "20250910", key)
	require.True(t, taskid.ValidDateKey(taskid.TodayKey(loc)))
}
