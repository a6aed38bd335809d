package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvatarURLNormalisesEmail(t *testing.T) {
	a := AvatarURL("  Info@Lynqit.NL ", 0)
	b := AvatarURL("info@lynqit.nl", 80)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "https://www.gravatar.com/avatar/"))
	assert.Contains(t, a, "s=80")
}
