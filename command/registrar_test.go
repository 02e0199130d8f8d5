package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryCommandHasAPermissionLevel(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range GetCommandDefinitions() {
		assert.False(t, seen[def.Name], "duplicate command %s", def.Name)
		seen[def.Name] = true
		assert.Contains(t, Permissions, def.Name)
		assert.NotEmpty(t, def.Description)
	}
	assert.Len(t, Permissions, len(seen))
}
