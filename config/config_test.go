package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytesValid(t *testing.T) {
	err := LoadBytes([]byte(`
default = "standard"

[[profile]]
name = "standard"
firmware_major = 1
firmware_minor = 0
select = 10
step = 3
seek_settle = 15
motor = 750
auto_off = 10000
`))
	require.NoError(t, err)
	assert.Equal(t, "standard", ProfileName)
	assert.Equal(t, uint8(1), ExpectedVersion.Major)
	assert.Equal(t, uint16(750), Delays.Motor)
}

func TestLoadBytesMissingDefault(t *testing.T) {
	err := LoadBytes([]byte(`
[[profile]]
name = "standard"
`))
	assert.ErrorContains(t, err, "`default` key is missing")
}

func TestLoadBytesDefaultNotFound(t *testing.T) {
	err := LoadBytes([]byte(`
default = "nonexistent"

[[profile]]
name = "standard"
`))
	assert.ErrorContains(t, err, `default profile "nonexistent" not found`)
}

func TestLoadBytesMalformed(t *testing.T) {
	err := LoadBytes([]byte(`this is not valid toml {{{`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to parse TOML config")
}

func TestGetProfile(t *testing.T) {
	err := LoadBytes([]byte(`
default = "standard"

[[profile]]
name = "standard"
firmware_major = 1
firmware_minor = 0

[[profile]]
name = "slow-seek"
firmware_major = 1
firmware_minor = 0
step = 6
`))
	require.NoError(t, err)

	version, delays, err := GetProfile("slow-seek")
	require.NoError(t, err)
	assert.Equal(t, uint8(1), version.Major)
	assert.Equal(t, uint16(6), delays.Step)

	_, _, err = GetProfile("missing")
	assert.ErrorContains(t, err, `profile "missing" not found`)
}
