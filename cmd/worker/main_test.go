package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xwms/xwms/internal/app"
	"github.com/xwms/xwms/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	assert.Equal(t, "1", os.Getenv(guard.EnvVar))
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
