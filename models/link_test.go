package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkValidate(t *testing.T) {
	base := Link{Mode: ModeQuest, Subject: "Photosynthesis", Prompt: "Explain photosynthesis"}

	t.Run("valid", func(t *testing.T) {
		l := base
		require.NoError(t, l.Validate())
	})

	t.Run("unknown mode", func(t *testing.T) {
		l := base
		l.Mode = "lecture"
		assert.ErrorIs(t, l.Validate(), ErrValidation)
	})

	t.Run("missing subject", func(t *testing.T) {
		l := base
		l.Subject = ""
		assert.ErrorIs(t, l.Validate(), ErrValidation)
	})

	t.Run("missing prompt", func(t *testing.T) {
		l := base
		l.Prompt = ""
		assert.ErrorIs(t, l.Validate(), ErrValidation)
	})

	t.Run("codebreaker requires language", func(t *testing.T) {
		l := Link{Mode: ModeCodebreaker, Subject: "Recursion", Prompt: "Teach recursion"}
		assert.ErrorIs(t, l.Validate(), ErrValidation)

		l.Language = "python"
		assert.NoError(t, l.Validate())
	})

	t.Run("language rejected outside codebreaker", func(t *testing.T) {
		l := base
		l.Language = "python"
		assert.ErrorIs(t, l.Validate(), ErrValidation)
	})
}

func TestLinkSystemPrompt(t *testing.T) {
	for _, mode := range []Mode{ModeInvestigator, ModeComparitor, ModeQuest, ModeCodebreaker, ModeEliminator} {
		l := Link{Mode: mode, Subject: "Algebra", Prompt: "Be patient.", Language: "go"}
		p := l.SystemPrompt()
		assert.Contains(t, p, "Algebra", "mode %s", mode)
		assert.Contains(t, p, "Be patient.", "mode %s", mode)
	}

	l := Link{Mode: ModeCodebreaker, Subject: "Loops", Prompt: "x", Language: "python"}
	assert.True(t, strings.Contains(l.SystemPrompt(), "python"))
}
