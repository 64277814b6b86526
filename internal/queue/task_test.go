package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskValuesDecode(t *testing.T) {
	task := PurgePhotos("flat-1")

	// Redis hands values back as strings; Values already uses only strings.
	got, err := DecodeTask(task.Values())
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestDecodeTaskRequiresType(t *testing.T) {
	_, err := DecodeTask(map[string]any{"flatId": "x"})
	assert.ErrorIs(t, err, ErrMalformedTask)
}
