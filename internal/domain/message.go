package domain

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultSystemPrompt asks for a short answer followed by the NEXT_QUESTIONS block
// that ParseResponse understands.
const DefaultSystemPrompt = "Answer the user's question in the language it was asked, briefly, concisely and without commentary. " +
	"At the end of your answer, give 3 suitable follow-up question suggestions under the heading 'NEXT_QUESTIONS:'.\n" +
	"Format:\n" +
	"NEXT_QUESTIONS:\n" +
	"1) …\n" +
	"2) …\n" +
	"3) …"

// Conversation is the append-only message log replayed on every chat request.
// It is not safe for concurrent use; the Assistant owns it.
type Conversation struct {
	messages []Message
}

func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		messages: []Message{{Role: RoleSystem, Content: systemPrompt}},
	}
}

func (c *Conversation) Append(role Role, content string) {
	c.messages = append(c.messages, Message{Role: role, Content: content})
}

// Snapshot returns a copy of the full ordered history.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// HasQuestion reports whether at least one user message was recorded.
func (c *Conversation) HasQuestion() bool {
	for _, m := range c.messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}
