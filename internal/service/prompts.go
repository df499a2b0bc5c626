package service

import (
	"strings"

	"github.com/liliang-cn/gmassist/internal/domain"
)

const basePrompt = `You are a helpful game master assistant for the WhisperShard project that specializes in script and scene lookup.`

const narratePrompt = `Narrate scenes for the players at the table. Wrap any passage meant to be read aloud in ` +
	NarrationOpen + ` and ` + NarrationClose + ` markers. Keep table talk, rulings and asides outside the markers.`

const interpretPrompt = `Help the game master interpret the rules and the scripted material. Answer plainly and do not narrate.`

const referencePrompt = `When referring to specific scripts or scenes, always include the reference information at the end of your response.`

// buildSystemPrompt assembles the system message for a turn. An empty mode
// means narrate.
func buildSystemPrompt(mode domain.Mode, contextBlock string) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n")

	switch mode {
	case domain.ModeInterpret:
		b.WriteString(interpretPrompt)
	default:
		b.WriteString(narratePrompt)
	}
	b.WriteString("\n")

	if contextBlock != "" {
		b.WriteString("Here is some relevant script information that might help with the response:\n")
		b.WriteString(contextBlock)
	}
	b.WriteString(referencePrompt)
	return b.String()
}
