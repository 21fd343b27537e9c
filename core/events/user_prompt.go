package events

// KindUserPrompt identifies an explicit text prompt injected by the client.
const KindUserPrompt Kind = "user_input.prompt"

// UserPrompt is an explicit typed trigger equivalent to a final transcript.
type UserPrompt struct {
	Base
	Prompt string
}

func NewUserPrompt(prompt string, opts ...BaseOption) UserPrompt {
	return UserPrompt{Base: NewBase(KindUserPrompt, opts...), Prompt: prompt}
}

func (p UserPrompt) String() string { return p.Prompt }
