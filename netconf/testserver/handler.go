package testserver

import (
	"encoding/xml"

	"github.com/damianoneill/ncclient/netconf/common"
)

// Request is an rpc received from a client.
type Request struct {
	XMLName   xml.Name
	MessageID string    `xml:"message-id,attr"`
	Operation Operation `xml:",any"`
}

// Operation is the element carried by an rpc, held verbatim.
type Operation struct {
	XMLName xml.Name
	Body    string `xml:",innerxml"`
}

// Reply is an rpc-reply sent to a client. Namespaces are declared on the rpc-reply element;
// Body is written verbatim after any errors.
type Reply struct {
	XMLName    xml.Name          `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc-reply"`
	MessageID  string            `xml:"message-id,attr"`
	Namespaces []xml.Attr        `xml:",any,attr"`
	Errors     []common.RPCError `xml:"rpc-error"`
	Body       string            `xml:",innerxml"`
}

// DataReply delivers a reply whose data element holds content.
func DataReply(content string) *Reply {
	return &Reply{Body: "<data>" + content + "</data>"}
}

// OkReply delivers a reply holding an ok element.
func OkReply() *Reply {
	return &Reply{Body: "<ok/>"}
}

// ErrorReply delivers a reply reporting errs.
func ErrorReply(errs ...common.RPCError) *Reply {
	return &Reply{Errors: errs}
}

// WithNamespace declares prefix on the rpc-reply element.
func (r *Reply) WithNamespace(prefix, uri string) *Reply {
	r.Namespaces = append(r.Namespaces, xml.Attr{Name: xml.Name{Local: "xmlns:" + prefix}, Value: uri})
	return r
}

// RequestHandler replies to a request received by session h. A nil reply sends nothing.
type RequestHandler func(h *SessionHandler, req *Request) *Reply

// EchoRequestHandler replies with a data element holding the body of the request.
func EchoRequestHandler(_ *SessionHandler, req *Request) *Reply {
	return DataReply(req.Operation.Body)
}

// FailingRequestHandler replies with an operation-failed error.
func FailingRequestHandler(_ *SessionHandler, _ *Request) *Reply {
	return ErrorReply(common.RPCError{Type: "application", Tag: "operation-failed", Severity: "error", Message: "oops"})
}

// CloseRequestHandler closes the session instead of replying.
func CloseRequestHandler(h *SessionHandler, _ *Request) *Reply {
	h.Close()
	return nil
}

// IgnoreRequestHandler never replies.
func IgnoreRequestHandler(_ *SessionHandler, _ *Request) *Reply {
	return nil
}

// ReplyWith delivers a handler sending reply, whatever the request.
func ReplyWith(reply *Reply) RequestHandler {
	return func(_ *SessionHandler, _ *Request) *Reply {
		copied := *reply
		return &copied
	}
}
