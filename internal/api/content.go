package api

import (
	"encoding/json"
	"fmt"
)

// MessageContent is a tagged variant over the two wire shapes of message
// content: a plain string, or an ordered list of typed parts. The zero value
// is the empty scalar string.
type MessageContent struct {
	text  string
	parts []ContentPart
	multi bool
}

// Text creates scalar string content.
func Text(s string) MessageContent {
	return MessageContent{text: s}
}

// Parts creates multipart content.
func Parts(parts ...ContentPart) MessageContent {
	return MessageContent{parts: parts, multi: true}
}

// IsParts reports whether the content is in multipart form.
func (mc MessageContent) IsParts() bool { return mc.multi }

// Parts returns the content parts. Scalar content is returned as a single
// text part so callers can always iterate one normalized representation.
func (mc MessageContent) Parts() []ContentPart {
	if mc.multi {
		return mc.parts
	}
	return []ContentPart{TextPart(mc.text)}
}

// Text returns the primary text: the scalar value, or the first text part.
func (mc MessageContent) Text() string {
	if !mc.multi {
		return mc.text
	}
	for _, p := range mc.parts {
		if p.Type == PartTypeText {
			return p.Text
		}
	}
	return ""
}

// HasImage reports whether any part is an image.
func (mc MessageContent) HasImage() bool {
	for _, p := range mc.parts {
		if p.Type == PartTypeImageURL {
			return true
		}
	}
	return false
}

// Normalized returns content with text parts ordered before other parts.
// Some OpenAI-compatible clients (LangSmith among them) expect the text
// part first in multimodal messages.
func (mc MessageContent) Normalized() MessageContent {
	if !mc.multi {
		return mc
	}
	texts := make([]ContentPart, 0, len(mc.parts))
	others := make([]ContentPart, 0, len(mc.parts))
	for _, p := range mc.parts {
		if p.Type == PartTypeText {
			texts = append(texts, p)
		} else {
			others = append(others, p)
		}
	}
	return Parts(append(texts, others...)...)
}

func (mc MessageContent) clone() MessageContent {
	if !mc.multi {
		return mc
	}
	parts := make([]ContentPart, len(mc.parts))
	for i, p := range mc.parts {
		cp := p
		if p.ImageURL != nil {
			u := *p.ImageURL
			cp.ImageURL = &u
		}
		parts[i] = cp
	}
	return Parts(parts...)
}

func (mc MessageContent) validate() error {
	if !mc.multi {
		return nil
	}
	for i, p := range mc.parts {
		switch p.Type {
		case PartTypeText:
		case PartTypeImageURL:
			if p.ImageURL == nil || p.ImageURL.URL == "" {
				return fmt.Errorf("part %d: image_url part without url", i)
			}
		default:
			return fmt.Errorf("part %d: unknown content part type %q", i, p.Type)
		}
	}
	return nil
}

// MarshalJSON emits the scalar string or the part array, matching whatever
// form the content is in.
func (mc MessageContent) MarshalJSON() ([]byte, error) {
	if mc.multi {
		return json.Marshal(mc.parts)
	}
	return json.Marshal(mc.text)
}

// UnmarshalJSON accepts a JSON string, an array of parts, or null.
func (mc *MessageContent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*mc = Text("")
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*mc = Text(s)
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of parts: %w", err)
	}
	*mc = Parts(parts...)
	return nil
}
