package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerConfig_Validate(t *testing.T) {
	config := SchedulerConfig{PipelinesPath: "/etc/airbridge/pipelines.toml"}
	require.NoError(t, config.Validate())
}

func TestSchedulerConfig_Validate_MissingPath(t *testing.T) {
	config := SchedulerConfig{}

	err := config.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Contains(t, err.Error(), "pipelines document path")
}

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.Equal(t, 10*time.Second, config.PollInterval)
	assert.Equal(t, 100, config.KeepHistory)
}
