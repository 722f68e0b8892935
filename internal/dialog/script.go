// Package dialog implements the scripted negotiation dialog: the script
// table, the affirmative classifier, and the stage transition machine.
package dialog

import (
	"strconv"
	"strings"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
)

// Line is one entry in the dialog script table: the templated prompt
// spoken at a stage and the fallback spoken when gathering fails.
type Line struct {
	Prompt   string
	Fallback string
}

// script maps each stage to its spoken lines. Placeholders are filled from
// ConversationState by RenderPrompt.
var script = map[model.Stage]Line{
	model.StageGreeting: {
		Prompt:   "Namaste! I am calling on behalf of a customer who wants to buy sarees. Do you sell sarees? Press 1 for yes, or 2 for no.",
		Fallback: "Sorry, I did not hear you. Do you sell sarees? Press 1 for yes, or 2 for no.",
	},
	model.StageAskRequirements: {
		Prompt:   "Great! My customer is looking for around {quantity} sarees. How many do you have, and what is your price per saree?",
		Fallback: "Sorry, I missed that. How many sarees do you have, and at what price?",
	},
	model.StageNegotiatePrice: {
		Prompt:   "We can offer {initialPrice} rupees per saree. Is that acceptable? Press 1 to accept, or tell me your best price.",
		Fallback: "Sorry, I did not catch that. Can you accept {initialPrice} rupees per saree? Press 1 to accept.",
	},
	model.StageCounterOffer: {
		Prompt:   "You said {vendorPrice} rupees. How about we meet in the middle at {finalPrice} rupees per saree? Press 1 if that works.",
		Fallback: "Sorry, I missed that. Can we agree on {finalPrice} rupees per saree? Press 1 to agree.",
	},
	model.StageFinalAgreement: {
		Prompt: "Wonderful! We have a deal: {quantity} sarees at {finalPrice} rupees each. My customer will arrange payment shortly. Thank you very much!",
	},
	model.StageNoSaree: {
		Prompt: "No problem at all. Thank you for your time, and have a good day!",
	},
	model.StageTimeout: {
		Prompt: "Sorry, I am having trouble hearing you. We will try again another time. Goodbye!",
	},
	model.StageEnded: {
		Prompt: "Thank you, goodbye!",
	},
}

// Apology is spoken before hanging up when the attempt limit is reached
// mid-stage or when call state cannot be resolved.
const Apology = "Sorry, we seem to have a bad connection. We will call back another time. Goodbye!"

// Lookup returns the script line for a stage. Unknown stages get the
// ended line so the renderer always has something safe to speak.
func Lookup(stage model.Stage) Line {
	if line, ok := script[stage]; ok {
		return line
	}
	return script[model.StageEnded]
}

// Defaults supplies placeholder values when the conversation has not
// produced one yet.
type Defaults struct {
	Quantity     int
	InitialPrice int
}

// RenderPrompt substitutes ConversationState values into a script
// template. Absent values fall back to the fixed defaults.
func RenderPrompt(tmpl string, cs model.ConversationState, d Defaults) string {
	quantity := cs.Quantity
	if quantity == 0 {
		quantity = d.Quantity
	}
	initial := cs.InitialPrice
	if initial == 0 {
		initial = d.InitialPrice
	}
	vendor := cs.VendorPrice
	if vendor == 0 {
		vendor = initial
	}
	final := cs.FinalPrice
	if final == 0 {
		final = initial
	}

	r := strings.NewReplacer(
		"{quantity}", strconv.Itoa(quantity),
		"{initialPrice}", strconv.Itoa(initial),
		"{vendorPrice}", strconv.Itoa(vendor),
		"{finalPrice}", strconv.Itoa(final),
	)
	return r.Replace(tmpl)
}
