package buildinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	v, c, b := Version, Commit, BuiltAt
	t.Cleanup(func() { Version, Commit, BuiltAt = v, c, b })

	Version, Commit, BuiltAt = "v1.0.0", "", ""
	assert.Equal(t, "v1.0.0 "+runtime.Version(), String())

	Commit, BuiltAt = "abc123", "2026-01-02"
	assert.Equal(t, "v1.0.0 (abc123) built 2026-01-02 "+runtime.Version(), String())
	assert.Equal(t, "abc123", Info()["commit"])
}
