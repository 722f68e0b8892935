// Package voice renders negotiation state into voice-dialog documents in
// the telephony provider's markup.
package voice

import (
	"encoding/xml"
	"fmt"
	"net/http"
)

// Say speaks a prompt to the remote party.
type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

// Gather plays a prompt and collects speech or keypad input, posting the
// result to Action. If nothing is gathered the document continues past it.
type Gather struct {
	XMLName   xml.Name `xml:"Gather"`
	Input     string   `xml:"input,attr"`
	Timeout   int      `xml:"timeout,attr"`
	NumDigits int      `xml:"numDigits,attr"`
	Action    string   `xml:"action,attr"`
	Method    string   `xml:"method,attr"`
	Say       *Say
}

// Redirect transfers control to another document URL.
type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

// Hangup terminates the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Document is one voice-dialog response. Verbs execute in order.
type Document struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// Append adds verbs to the document.
func (d *Document) Append(verbs ...any) {
	d.Verbs = append(d.Verbs, verbs...)
}

// GatherVerb returns the document's gather directive, if any.
func (d *Document) GatherVerb() *Gather {
	for _, v := range d.Verbs {
		if g, ok := v.(*Gather); ok {
			return g
		}
	}
	return nil
}

// HasHangup reports whether the document terminates the call.
func (d *Document) HasHangup() bool {
	for _, v := range d.Verbs {
		if _, ok := v.(*Hangup); ok {
			return true
		}
	}
	return false
}

// XML serializes the document with the XML declaration the provider
// expects.
func (d *Document) XML() ([]byte, error) {
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal voice document: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Write serializes the document onto an HTTP response. The provider drops
// the call on anything other than valid markup, so serialization failures
// degrade to a bare hangup document.
func Write(w http.ResponseWriter, d *Document) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")

	data, err := d.XML()
	if err != nil {
		fmt.Fprint(w, xml.Header+"<Response><Hangup></Hangup></Response>")
		return
	}
	w.Write(data)
}
