package model

import "context"

// PromptSpec describes the doorhanger to show.
type PromptSpec struct {
	// ID uniquely identifies this prompt instance.
	ID string

	// Title is the prompt title.
	Title string

	// Message is the prompt message.
	Message string

	// AcceptLabel is the label of the accept button.
	AcceptLabel string

	// DeclineLabel is the label of the decline button.
	DeclineLabel string

	// LearnMoreURL is an optional URL with more information.
	LearnMoreURL string
}

// PromptAction is the button the user pressed.
type PromptAction string

const (
	// PromptAccept is the accept button.
	PromptAccept = PromptAction("accept")

	// PromptDecline is the decline button.
	PromptDecline = PromptAction("decline")
)

// PromptResponse is the response to a prompt.
type PromptResponse struct {
	// PromptID is the ID of the prompt.
	PromptID string

	// Action is the button that was pressed.
	Action PromptAction

	// TabID identifies where the prompt was shown, when meaningful.
	TabID int64
}

// PromptSurface displays yes/no prompts.
type PromptSurface interface {
	// Show displays the prompt and returns a channel that receives at
	// most one response and is then closed. When the prompt times out the
	// channel is closed without delivering any response.
	Show(ctx context.Context, spec *PromptSpec) (<-chan *PromptResponse, error)
}
