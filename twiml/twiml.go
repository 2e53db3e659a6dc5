// Package twiml builds telephony markup documents (TwiML) for webhook
// responses. Verbs are appended in order and marshaled with encoding/xml,
// which also handles character escaping for caller-influenced text.
package twiml

import (
	"bytes"
	"encoding/xml"
)

// ContentType is the response content type for TwiML documents.
const ContentType = "text/xml"

// Response is the root TwiML document. Verbs render in append order.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// Say speaks text with the platform's built-in voice.
type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

// Play plays pre-rendered audio from a URL.
type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

// Gather collects caller speech and posts the result to Action.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr,omitempty"`
	Action        string   `xml:"action,attr,omitempty"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Language      string   `xml:"language,attr,omitempty"`
	Verbs         []any
}

// Message replies to an inbound text message.
type Message struct {
	XMLName xml.Name `xml:"Message"`
	Text    string   `xml:",chardata"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// New creates an empty response document.
func New() *Response {
	return &Response{}
}

// Say appends a native-voice say verb.
func (r *Response) Say(voice, language, text string) *Response {
	r.Verbs = append(r.Verbs, Say{Voice: voice, Language: language, Text: text})
	return r
}

// Play appends a play verb pointing at pre-rendered audio.
func (r *Response) Play(url string) *Response {
	r.Verbs = append(r.Verbs, Play{URL: url})
	return r
}

// Gather appends a speech gather verb with optional nested verbs.
func (r *Response) Gather(g Gather) *Response {
	r.Verbs = append(r.Verbs, g)
	return r
}

// Message appends an SMS reply verb.
func (r *Response) Message(text string) *Response {
	r.Verbs = append(r.Verbs, Message{Text: text})
	return r
}

// Hangup appends a hangup verb.
func (r *Response) Hangup() *Response {
	r.Verbs = append(r.Verbs, Hangup{})
	return r
}

// Encode renders the document with the XML declaration.
func (r *Response) Encode() ([]byte, error) {
	body, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
