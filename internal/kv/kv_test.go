package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInfo(t *testing.T) {
	raw := "# Server\r\nredis_version:7.2.4\r\n\r\n# Stats\r\nkeyspace_hits:42\r\nkeyspace_misses:7\r\nmalformed line\r\n"

	fields := parseInfo(raw)

	assert.Equal(t, "7.2.4", fields["redis_version"])
	assert.Equal(t, "42", fields["keyspace_hits"])
	assert.Equal(t, "7", fields["keyspace_misses"])
	assert.NotContains(t, fields, "# Server")
	assert.NotContains(t, fields, "malformed line")
}

func TestParseInfo_Empty(t *testing.T) {
	assert.Empty(t, parseInfo(""))
}
