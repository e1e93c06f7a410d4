package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn of a conversation. Content accepts either a string
// or an array of typed parts; for arrays the parts are kept verbatim in Parts
// and Content carries their text parts joined by newlines.
type ChatMessage struct {
	Role    string
	Content string
	Parts   json.RawMessage
}

type chatMessageWire struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UnmarshalJSON decodes string, array and null content
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var wire chatMessageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = ChatMessage{Role: wire.Role}

	content := bytes.TrimSpace(wire.Content)
	switch {
	case len(content) == 0 || bytes.Equal(content, []byte("null")):
		return nil
	case content[0] == '"':
		return json.Unmarshal(content, &m.Content)
	case content[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(content, &items); err != nil {
			return fmt.Errorf("%w: message content: %v", ErrInvalidInput, err)
		}
		var texts []string
		for _, item := range items {
			var part contentPart
			if json.Unmarshal(item, &part) != nil {
				continue
			}
			if part.Type == "text" && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		m.Content = strings.Join(texts, "\n")
		m.Parts = append(json.RawMessage(nil), content...)
		return nil
	}
	return fmt.Errorf("%w: message content must be a string or an array", ErrInvalidInput)
}

// MarshalJSON writes Parts back unchanged when present, else Content
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(m.Content)
	if err != nil {
		return nil, err
	}
	if len(m.Parts) > 0 {
		content = m.Parts
	}
	return json.Marshal(chatMessageWire{Role: m.Role, Content: content})
}

// ChatRequest is a conversation sent to the downstream model
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

// ChatResponse is the downstream model's reply. Raw holds the response body
// byte for byte so it can be returned unchanged.
type ChatResponse struct {
	Model   string          `json:"model,omitempty"`
	Content string          `json:"content"`
	Raw     json.RawMessage `json:"-"`
}

// ChatStream is a streamed model response passed through without decoding
type ChatStream struct {
	ContentType string
	Body        io.ReadCloser
}

// AnswerRequest runs the full pipeline and invokes the model
type AnswerRequest struct {
	Messages []ChatMessage
	Stream   bool
	Identity *Identity
}

// LastUserContent returns the content of the final message if it was sent by
// the user
func (r AnswerRequest) LastUserContent() (string, bool) {
	if len(r.Messages) == 0 {
		return "", false
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser {
		return "", false
	}
	return last.Content, true
}

// ReplaceLastMessage returns a copy of messages whose final entry is a user
// message carrying content
func ReplaceLastMessage(messages []ChatMessage, content string) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	if len(messages) > 0 {
		out = append(out, messages[:len(messages)-1]...)
	}
	return append(out, ChatMessage{Role: RoleUser, Content: content})
}
