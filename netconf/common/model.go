package common

import (
	"encoding/xml"
	"fmt"
)

// NetconfNS is the namespace of the base protocol elements.
const NetconfNS = "urn:ietf:params:xml:ns:netconf:base:1.0"

// Capabilities exchanged in hello messages.
const (
	CapBase10    = "urn:ietf:params:netconf:base:1.0"
	CapBase11    = "urn:ietf:params:netconf:base:1.1"
	CapCandidate = "urn:ietf:params:netconf:capability:candidate:1.0"
	CapStartup   = "urn:ietf:params:netconf:capability:startup:1.0"
	CapRunning   = "urn:ietf:params:netconf:capability:writable-running:1.0"
)

// DefaultCapabilities are advertised by peers that accept both framing modes.
var DefaultCapabilities = []string{CapBase10, CapBase11}

// Base10Capabilities are advertised by peers restricted to end-of-message framing.
var Base10Capabilities = []string{CapBase10}

// Element names of the messages exchanged by peers.
var (
	NameHello    = xml.Name{Space: NetconfNS, Local: "hello"}
	NameRPC      = xml.Name{Space: NetconfNS, Local: "rpc"}
	NameRPCReply = xml.Name{Space: NetconfNS, Local: "rpc-reply"}
)

// Request is the body of an rpc: verbatim xml text, an *Element, or a value marshalled with its xml tags.
type Request interface{}

// HelloMessage opens a session. The server's hello carries the session id.
type HelloMessage struct {
	XMLName      xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    uint64   `xml:"session-id,omitempty"`
}

// Supports reports whether the hello advertises capability.
func (h *HelloMessage) Supports(capability string) bool {
	for _, c := range h.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// RPCMessage carries a request to the server.
type RPCMessage struct {
	XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc"`
	MessageID string   `xml:"message-id,attr"`
	*Content
}

// RPCReply is a reply as received by a client.
// Data holds the content of the rpc-reply element verbatim; Namespaces holds the namespace
// declarations made on the rpc-reply element itself, which Data may rely on.
type RPCReply struct {
	XMLName    xml.Name   `xml:"rpc-reply"`
	MessageID  string     `xml:"message-id,attr"`
	Errors     []RPCError `xml:"rpc-error"`
	Data       string     `xml:",innerxml"`
	Namespaces []xml.Attr `xml:"-"`
}

// Err delivers the first error-severity rpc-error of the reply, or nil. Warnings are ignored.
func (r *RPCReply) Err() error {
	for i := range r.Errors {
		if r.Errors[i].Severity == "error" {
			e := r.Errors[i]
			return &e
		}
	}
	return nil
}

// RPCError is an rpc-error reported by the server.
type RPCError struct {
	Type     string `xml:"error-type"`
	Tag      string `xml:"error-tag"`
	Severity string `xml:"error-severity"`
	Path     string `xml:"error-path,omitempty"`
	Message  string `xml:"error-message"`
	Info     string `xml:",innerxml"`
}

func (re *RPCError) Error() string {
	return fmt.Sprintf("netconf rpc [%s] '%s'", re.Severity, re.Message)
}

// Content is marshalled as either verbatim xml or the xml encoding of a value.
type Content struct {
	Value    interface{}
	Verbatim string `xml:",innerxml"`
}

// NewContent wraps v for marshalling. Strings and elements are written verbatim.
func NewContent(v interface{}) *Content {
	switch v := v.(type) {
	case string:
		return &Content{Verbatim: v}
	case *Element:
		return &Content{Verbatim: v.String()}
	}
	return &Content{Value: v}
}
