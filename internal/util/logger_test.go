package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		require.NoError(t, InitLogger(env))
		assert.NotNil(t, GetLogger())
	}
}

func TestGetLoggerWithoutInit(t *testing.T) {
	saved := logger
	logger = nil
	defer func() { logger = saved }()

	assert.NotNil(t, GetLogger())
}
