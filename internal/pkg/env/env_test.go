package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	Env = map[string]string{"LYNQIT_TEST_KEY": "from-file"}
	t.Setenv("LYNQIT_TEST_KEY", "from-os")
	defer func() { Env = nil }()

	assert.Equal(t, "from-file", GetEnv("LYNQIT_TEST_KEY", "def"))
}

func TestGetEnvFallsBackToOSAndDefault(t *testing.T) {
	Env = map[string]string{}
	defer func() { Env = nil }()
	t.Setenv("LYNQIT_OS_ONLY", "os")

	assert.Equal(t, "os", GetEnv("LYNQIT_OS_ONLY", "def"))
	assert.Equal(t, "def", GetEnv("LYNQIT_MISSING", "def"))
}

func TestGetBoolAndInt(t *testing.T) {
	Env = map[string]string{"FLAG": "true", "BROKEN": "nope", "WORKERS": "7"}
	defer func() { Env = nil }()

	assert.True(t, GetBool("FLAG", false))
	assert.True(t, GetBool("BROKEN", true))
	assert.False(t, GetBool("UNSET_FLAG", false))
	assert.Equal(t, 7, GetInt("WORKERS", 3))
	assert.Equal(t, 3, GetInt("BROKEN", 3))
}
