package protocol

import "encoding/json"

// ContentPart is one block of a structured prompt. Closed union: TextPart
// and ImagePart are the only implementations.
type ContentPart interface {
	part()
}

// TextPart is a plain-text prompt block.
type TextPart struct {
	Text string `json:"text"`
}

// ImagePart is a base64-encoded image prompt block. MediaType is a MIME
// type such as "image/png".
type ImagePart struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func (TextPart) part()  {}
func (ImagePart) part() {}

// Prompt is the outbound content of one query: either plain text or an
// ordered list of content parts. Both forms travel through the same event
// protocol.
type Prompt struct {
	parts []ContentPart
}

// Text builds a plain-text prompt.
func Text(s string) Prompt {
	return Prompt{parts: []ContentPart{TextPart{Text: s}}}
}

// Parts builds a structured multi-part prompt.
func Parts(parts ...ContentPart) Prompt {
	return Prompt{parts: parts}
}

// Parts returns the ordered content blocks of the prompt.
func (p Prompt) Parts() []ContentPart {
	return p.parts
}

// IsText reports whether the prompt is a single plain-text block.
func (p Prompt) IsText() bool {
	if len(p.parts) != 1 {
		return false
	}
	_, ok := p.parts[0].(TextPart)
	return ok
}

// MarshalJSON encodes a plain-text prompt as a JSON string and a
// structured prompt as an array of typed blocks, matching the agent wire
// format.
func (p Prompt) MarshalJSON() ([]byte, error) {
	if p.IsText() {
		return json.Marshal(p.parts[0].(TextPart).Text)
	}

	blocks := make([]map[string]any, 0, len(p.parts))
	for _, part := range p.parts {
		switch v := part.(type) {
		case TextPart:
			blocks = append(blocks, map[string]any{"type": "text", "text": v.Text})
		case ImagePart:
			blocks = append(blocks, map[string]any{
				"type": "image",
				"source": map[string]any{
					"type":       "base64",
					"media_type": v.MediaType,
					"data":       v.Data,
				},
			})
		}
	}
	return json.Marshal(blocks)
}
