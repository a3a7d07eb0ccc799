// Package ipc carries newline-delimited JSON commands between the CLI and
// the owner process over a unix socket.
package ipc

// Request is one CLI command sent to the owner.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	ID      int64  `json:"id,omitempty"`
	// Focus is set when the gesture landed in a text-entry field.
	Focus bool `json:"focus,omitempty"`
}

// Entry is one conversation history item as reported over the socket.
type Entry struct {
	ID               int64  `json:"id"`
	OriginalText     string `json:"original_text"`
	OriginalLanguage string `json:"original_language"`
	TranslatedText   string `json:"translated_text"`
	TargetLanguage   string `json:"target_language"`
	Failed           bool   `json:"failed,omitempty"`
}

// Response is the owner's reply.
type Response struct {
	OK         bool    `json:"ok"`
	State      string  `json:"state,omitempty"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
	Source     string  `json:"source,omitempty"`
	Target     string  `json:"target,omitempty"`
	Speaking   bool    `json:"speaking,omitempty"`
	Transcript string  `json:"transcript,omitempty"`
	Entries    []Entry `json:"entries,omitempty"`
}
