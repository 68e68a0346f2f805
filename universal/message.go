// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package universal

// Message is a user turn handed to an agent. It is immutable once
// constructed; sending the same Message to two different agents must
// produce equivalent native input wherever their capabilities overlap.
type Message struct {
	// Text is the message body. Always present, may be empty when the
	// turn carries only attachments.
	Text string `json:"text"`

	// Images are inline image attachments. Requires the target agent's
	// Images capability; converters reject a Message carrying images
	// against an agent that lacks it.
	Images []ImageAttachment `json:"images,omitempty"`

	// Files are file attachments referenced by path or inline content.
	// Requires the target agent's FileAttachments capability.
	Files []FileAttachment `json:"files,omitempty"`

	// ToolResults carries client-supplied tool outputs for agents whose
	// protocol expects tool results to be threaded back through the
	// next user turn rather than a dedicated endpoint.
	ToolResults []ToolResultPayload `json:"toolResults,omitempty"`
}

// ImageAttachment is an inline image, base64-encoded per the mime type.
type ImageAttachment struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FileAttachment references a file by path, or carries inline content
// when Path is empty.
type FileAttachment struct {
	Path    string `json:"path,omitempty"`
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
}

// ToolResultPayload carries the outcome of a tool call back to the
// agent that requested it.
type ToolResultPayload struct {
	ToolCallID string `json:"toolCallId"`
	IsError    bool   `json:"isError,omitempty"`
	Output     string `json:"output"`
}

// HasImages reports whether the message carries any image attachments.
func (m Message) HasImages() bool { return len(m.Images) > 0 }

// HasFiles reports whether the message carries any file attachments.
func (m Message) HasFiles() bool { return len(m.Files) > 0 }
