package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv(t *testing.T) {
	t.Setenv("ELECTIONSX_TEST", "")
	assert.Equal(t, "def", Env("ELECTIONSX_TEST", "def"))
	t.Setenv("ELECTIONSX_TEST", "val")
	assert.Equal(t, "val", Env("ELECTIONSX_TEST", "def"))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("ELECTIONSX_INT", "8")
	assert.Equal(t, 8, EnvInt("ELECTIONSX_INT", 4))
	t.Setenv("ELECTIONSX_INT", "-1")
	assert.Equal(t, 4, EnvInt("ELECTIONSX_INT", 4))
	t.Setenv("ELECTIONSX_INT", "many")
	assert.Equal(t, 4, EnvInt("ELECTIONSX_INT", 4))
}

func TestEnvBool(t *testing.T) {
	t.Setenv("ELECTIONSX_BOOL", "true")
	assert.True(t, EnvBool("ELECTIONSX_BOOL", false))
	t.Setenv("ELECTIONSX_BOOL", "nope")
	assert.False(t, EnvBool("ELECTIONSX_BOOL", false))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, b,,a "))
	assert.Equal(t, []string{}, SplitList(""))
}

func TestPasswordHash(t *testing.T) {
	hash, err := PasswordHash("secret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret"))
	assert.False(t, CheckPassword(hash, "other"))

	again, err := PasswordHash(string(hash))
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}
