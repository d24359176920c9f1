package memory

import (
	"strings"

	"github.com/SaiNageswarS/course-rag/llm"
)

// Conversation is the stored history of one session.
type Conversation struct {
	ID       string        `json:"id"`
	Messages []llm.Message `json:"messages"`
}

func (m *Conversation) AddUserMessage(content string) {
	m.Messages = append(m.Messages, llm.Message{Role: "user", Content: content})
}

func (m *Conversation) AddAssistantMessage(content string) {
	m.Messages = append(m.Messages, llm.Message{Role: "assistant", Content: content})
}

// AddExchange appends a question/answer pair and trims the history to the
// last maxExchanges user turns.
func (m *Conversation) AddExchange(question, answer string, maxExchanges int) {
	m.AddUserMessage(question)
	m.AddAssistantMessage(answer)
	m.Messages = trimForSession(m.Messages, maxExchanges)
}

// trimForSession keeps the last maxMsgs "user" messages and any number of
// "assistant" (and tool) messages that follow them.
// If there are fewer than maxMsgs user messages total, it returns msgs unchanged.
func trimForSession(msgs []llm.Message, maxMsgs int) []llm.Message {
	if maxMsgs <= 0 || len(msgs) == 0 {
		return []llm.Message{}
	}

	usersSeen := 0
	start := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" && !msgs[i].IsToolResult {
			usersSeen++
			if usersSeen == maxMsgs {
				start = i
				break
			}
		}
	}

	return msgs[start:]
}

// FormatHistory renders messages as "User: ...\nAssistant: ..." lines.
// An empty history renders as the empty string.
func FormatHistory(msgs []llm.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg.IsToolResult {
			continue
		}
		lines = append(lines, roleLabel(msg.Role)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func roleLabel(role string) string {
	if role == "" {
		return ""
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
