package relay

import "slices"

// unfinishedPlaceholder separates two consecutive messages that share a
// role, so the upstream sees a strictly alternating conversation.
const unfinishedPlaceholder = "[Unfinished thinking]"

// Message is one entry of a chat history as received from the client.
// The relay only inspects the role; everything else passes through.
type Message = map[string]any

// NormalizeMessages walks the history backwards and inserts a
// placeholder message of the opposite role between any two consecutive
// messages with the same role. Reasoner APIs reject non-alternating
// histories, which occur when a previous response was cut short.
func NormalizeMessages(messages []Message) []Message {
	for i := len(messages) - 1; i > 0; i-- {
		role, _ := messages[i]["role"].(string)
		prev, _ := messages[i-1]["role"].(string)
		if role != prev {
			continue
		}
		alt := "user"
		if role == "user" {
			alt = "assistant"
		}
		messages = slices.Insert(messages, i, Message{
			"role":    alt,
			"content": unfinishedPlaceholder,
		})
	}
	return messages
}
