package ai

import (
	"fmt"
	"strings"

	"github.com/playperu/diplomacy/internal/engine"
)

const systemPrompt = `You represent a galactic civilization in a game of diplomacy. Each round
players make trade, alliance and military proposals, discuss them and vote.
Other players may lie to you for their own benefit, and you may do the same.
Answer in one or two sentences, in character.`

func chatPrompt(view engine.ChatView) string {
	civ := make(map[string]string, len(view.Participants))
	for _, p := range view.Participants {
		civ[p.ID] = p.Civilization
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your civilization is %s (Might: %d, Economy: %d).\n", view.Self.Civilization, view.Self.Might, view.Self.Economy)
	b.WriteString("Discussion members:\n")
	for _, id := range view.Discussion.ParticipantIDs {
		fmt.Fprintf(&b, "- %s\n", civ[id])
	}
	b.WriteString("\nConversation so far:\n")
	for _, m := range view.Discussion.Messages {
		fmt.Fprintf(&b, "%s: %s\n", civ[m.SenderID], m.Content)
	}
	if n := len(view.Discussion.Messages); n == 0 || view.Discussion.Messages[n-1].ID != view.Message.ID {
		fmt.Fprintf(&b, "%s: %s\n", civ[view.Message.SenderID], view.Message.Content)
	}
	b.WriteString("\nThink inside <thinking></thinking> tags, then write your reply inside <response></response> tags.")
	return b.String()
}

// extractResponse returns the text inside the response tags, or the whole
// trimmed text when the model ignored them.
func extractResponse(text string) string {
	_, after, ok := strings.Cut(text, "<response>")
	if !ok {
		if strings.Contains(text, "<thinking>") {
			return ""
		}
		return strings.TrimSpace(text)
	}
	body, _, _ := strings.Cut(after, "</response>")
	return strings.TrimSpace(body)
}
