package modelmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_Mapped(t *testing.T) {
	t.Parallel()
	mapping := map[string]string{"gpt-4o": "claude-3-7-sonnet"}
	assert.Equal(t, "claude-3-7-sonnet", Apply(mapping, "gpt-4o"))
}

func TestApply_Unmapped(t *testing.T) {
	t.Parallel()
	mapping := map[string]string{"gpt-4o": "claude-3-7-sonnet"}
	assert.Equal(t, "gpt-4o-mini", Apply(mapping, "gpt-4o-mini"))
}

func TestApply_NilMapping(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "gpt-4o", Apply(nil, "gpt-4o"))
}

func TestApply_EmptyMappedValueIgnored(t *testing.T) {
	t.Parallel()
	mapping := map[string]string{"gpt-4o": ""}
	assert.Equal(t, "gpt-4o", Apply(mapping, "gpt-4o"))
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()
	mapping := map[string]string{"gpt-4o": "claude-3-7-sonnet"}
	once := Apply(mapping, "gpt-4o")
	twice := Apply(mapping, once)
	assert.Equal(t, once, twice)
}
