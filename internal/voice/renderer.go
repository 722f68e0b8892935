package voice

import (
	"fmt"

	"github.com/amanpal108/Zenno-Concierge/internal/dialog"
	"github.com/amanpal108/Zenno-Concierge/internal/model"
)

// Options configures document rendering.
type Options struct {
	// BaseURL is the externally reachable prefix for action and redirect
	// targets.
	BaseURL string
	// GatherTimeoutSec is how long the provider waits for input.
	GatherTimeoutSec int
	// MaxDigits bounds keypad input per gather.
	MaxDigits int
	// MaxAttempts is the per-stage retry threshold; at the threshold the
	// gather is replaced by an apology and hangup.
	MaxAttempts int
	// Defaults fill prompt placeholders the conversation has not set.
	Defaults dialog.Defaults
}

// Renderer turns (stage, conversation state, attempt) into a voice-dialog
// document.
type Renderer struct {
	opts Options
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.GatherTimeoutSec == 0 {
		opts.GatherTimeoutSec = 5
	}
	if opts.MaxDigits == 0 {
		opts.MaxDigits = 1
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	return &Renderer{opts: opts}
}

// Render produces the document for one turn of the call.
//
// Terminal stages speak their closing line and hang up. Non-terminal
// stages at the attempt threshold apologize and hang up instead of
// listening again. Otherwise the prompt is wrapped in a gather whose
// action embeds (stage, attempt), followed by the fallback line and a
// redirect to attempt+1 on the same stage for when the provider could not
// deliver input at all.
func (r *Renderer) Render(sessionID, callID string, stage model.Stage, cs model.ConversationState, attempt int) *Document {
	doc := &Document{}
	line := dialog.Lookup(stage)
	prompt := dialog.RenderPrompt(line.Prompt, cs, r.opts.Defaults)

	if stage.Terminal() {
		doc.Append(&Say{Text: prompt}, &Hangup{})
		return doc
	}

	if attempt >= r.opts.MaxAttempts {
		doc.Append(&Say{Text: dialog.Apology}, &Hangup{})
		return doc
	}

	gather := &Gather{
		Input:     "speech dtmf",
		Timeout:   r.opts.GatherTimeoutSec,
		NumDigits: r.opts.MaxDigits,
		Action:    r.gatherURL(sessionID, callID, stage, attempt),
		Method:    "POST",
		Say:       &Say{Text: prompt},
	}
	doc.Append(gather)

	if line.Fallback != "" {
		doc.Append(&Say{Text: dialog.RenderPrompt(line.Fallback, cs, r.opts.Defaults)})
	}
	doc.Append(&Redirect{
		Method: "POST",
		URL:    r.promptURL(sessionID, callID, stage, attempt+1),
	})

	return doc
}

// SafeFallback is the document served when session or call state cannot
// be resolved: the remote party cannot interpret anything but a polite
// close.
func (r *Renderer) SafeFallback() *Document {
	doc := &Document{}
	doc.Append(&Say{Text: dialog.Apology}, &Hangup{})
	return doc
}

// PromptURL is the provider-facing URL for the current prompt of a call.
func (r *Renderer) PromptURL(sessionID, callID string, stage model.Stage, attempt int) string {
	return r.promptURL(sessionID, callID, stage, attempt)
}

func (r *Renderer) gatherURL(sessionID, callID string, stage model.Stage, attempt int) string {
	return fmt.Sprintf("%s/voice/%s/%s/gather?stage=%s&attempt=%d",
		r.opts.BaseURL, sessionID, callID, stage, attempt)
}

func (r *Renderer) promptURL(sessionID, callID string, stage model.Stage, attempt int) string {
	return fmt.Sprintf("%s/voice/%s/%s/prompt?stage=%s&attempt=%d",
		r.opts.BaseURL, sessionID, callID, stage, attempt)
}
