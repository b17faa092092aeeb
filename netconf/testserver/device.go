package testserver

import (
	"encoding/xml"
	"fmt"
	"strings"
	"sync"

	"github.com/damianoneill/ncclient/netconf/common"
)

// Datastore names known to a Device.
const (
	Running   = "running"
	Startup   = "startup"
	Candidate = "candidate"
)

// DeviceCapabilities are advertised by a test server with an attached device.
var DeviceCapabilities = []string{
	common.CapBase10,
	common.CapBase11,
	common.CapCandidate,
	common.CapStartup,
	common.CapRunning,
}

// Device simulates the datastores of a managed device, shared by every session of a test server.
// Configuration is held as a list of top-level elements per datastore; edits replace top-level
// elements by name.
type Device struct {
	lock       sync.Mutex
	datastores map[string][]*common.Element
	state      []*common.Element
	locks      map[string]uint64
}

// NewDevice delivers a device with empty running, startup and candidate datastores.
func NewDevice() *Device {
	return &Device{
		datastores: map[string][]*common.Element{Running: nil, Startup: nil, Candidate: nil},
		locks:      make(map[string]uint64),
	}
}

// WithConfig sets the content of datastore. Setting running also resets candidate to the same content.
// It panics if config is not well-formed.
func (d *Device) WithConfig(datastore, config string) *Device {
	elements := mustParse(config)

	d.lock.Lock()
	defer d.lock.Unlock()
	if _, ok := d.datastores[datastore]; !ok {
		panic(fmt.Sprintf("unknown datastore %q", datastore))
	}
	d.datastores[datastore] = elements
	if datastore == Running {
		d.datastores[Candidate] = clone(elements)
	}
	return d
}

// WithState sets the operational state returned by get, in addition to the running configuration.
// It panics if state is not well-formed.
func (d *Device) WithState(state string) *Device {
	elements := mustParse(state)

	d.lock.Lock()
	defer d.lock.Unlock()
	d.state = elements
	return d
}

// Config delivers the serialized content of datastore.
func (d *Device) Config(datastore string) string {
	d.lock.Lock()
	defer d.lock.Unlock()
	return serialize(d.datastores[datastore])
}

// LockHolder delivers the id of the session holding the lock on datastore, or zero if it is not locked.
func (d *Device) LockHolder(datastore string) uint64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.locks[datastore]
}

// ReleaseLocks releases every lock held by session sid.
func (d *Device) ReleaseLocks(sid uint64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.releaseLocks(sid)
}

func (d *Device) releaseLocks(sid uint64) {
	for ds, holder := range d.locks {
		if holder == sid {
			delete(d.locks, ds)
		}
	}
}

// operation captures the parameters of the base protocol operations.
type operation struct {
	Source           *datastoreRef `xml:"source"`
	Target           *datastoreRef `xml:"target"`
	Config           *content      `xml:"config"`
	Filter           *content      `xml:"filter"`
	DefaultOperation string        `xml:"default-operation"`
	SessionID        uint64        `xml:"session-id"`
}

type datastoreRef struct {
	Running   *struct{} `xml:"running"`
	Candidate *struct{} `xml:"candidate"`
	Startup   *struct{} `xml:"startup"`
	URL       string    `xml:"url"`
	Config    *content  `xml:"config"`
}

type content struct {
	Type  string `xml:"type,attr"`
	Inner string `xml:",innerxml"`
}

func (r *datastoreRef) name() string {
	switch {
	case r == nil:
		return ""
	case r.Running != nil:
		return Running
	case r.Candidate != nil:
		return Candidate
	case r.Startup != nil:
		return Startup
	}
	return ""
}

// HandleRequest applies a base protocol operation to the device on behalf of the session h.
// It has the signature of a RequestHandler.
func (d *Device) HandleRequest(h *SessionHandler, req *Request) *Reply {
	op := &operation{}
	if err := xml.Unmarshal([]byte("<operation>"+req.Operation.Body+"</operation>"), op); err != nil {
		return errorReply("rpc", "malformed-message", err.Error())
	}

	sid := h.ID()

	d.lock.Lock()
	defer d.lock.Unlock()

	switch req.Operation.XMLName.Local {
	case "get":
		return d.get(append(clone(d.datastores[Running]), d.state...), op.Filter)
	case "get-config":
		source, reply := d.datastore(op.Source)
		if reply != nil {
			return reply
		}
		return d.get(d.datastores[source], op.Filter)
	case "edit-config":
		return d.editConfig(sid, op)
	case "copy-config":
		return d.copyConfig(sid, op)
	case "delete-config":
		return d.deleteConfig(sid, op)
	case "lock":
		return d.lockDatastore(sid, op)
	case "unlock":
		return d.unlockDatastore(sid, op)
	case "commit":
		if reply := d.checkAccess(sid, Running, Candidate); reply != nil {
			return reply
		}
		d.datastores[Running] = clone(d.datastores[Candidate])
		return OkReply()
	case "discard-changes":
		if reply := d.checkAccess(sid, Candidate); reply != nil {
			return reply
		}
		d.datastores[Candidate] = clone(d.datastores[Running])
		return OkReply()
	case "close-session":
		d.releaseLocks(sid)
		return OkReply()
	case "kill-session":
		return d.killSession(h, op.SessionID)
	}
	return errorReply("protocol", "operation-not-supported", fmt.Sprintf("operation %s is not supported", req.Operation.XMLName.Local))
}

func (d *Device) get(elements []*common.Element, f *content) *Reply {
	if f == nil || strings.TrimSpace(f.Inner) == "" {
		return DataReply(serialize(elements))
	}
	if f.Type != "" && f.Type != "subtree" {
		return errorReply("protocol", "operation-not-supported", fmt.Sprintf("filter type %s is not supported", f.Type))
	}

	selectors, err := common.ParseElements(f.Inner)
	if err != nil {
		return errorReply("protocol", "malformed-message", err.Error())
	}

	var selected []*common.Element
	for _, e := range elements {
		for _, s := range selectors {
			if s.XMLName.Local == e.XMLName.Local && (s.XMLName.Space == "" || s.XMLName.Space == e.XMLName.Space) {
				selected = append(selected, e)
				break
			}
		}
	}
	return DataReply(serialize(selected))
}

func (d *Device) editConfig(sid uint64, op *operation) *Reply {
	target, reply := d.writableDatastore(sid, op.Target)
	if reply != nil {
		return reply
	}
	if op.Config == nil {
		return errorReply("protocol", "missing-element", "config element is required")
	}

	edits, err := common.ParseElements(op.Config.Inner)
	if err != nil {
		return errorReply("application", "malformed-message", err.Error())
	}

	if op.DefaultOperation == "replace" {
		d.datastores[target] = edits
		return OkReply()
	}
	d.datastores[target] = merge(d.datastores[target], edits)
	return OkReply()
}

func (d *Device) copyConfig(sid uint64, op *operation) *Reply {
	target, reply := d.writableDatastore(sid, op.Target)
	if reply != nil {
		return reply
	}
	if op.Source == nil {
		return errorReply("protocol", "missing-element", "source element is required")
	}

	if op.Source.Config != nil {
		config, err := common.ParseElements(op.Source.Config.Inner)
		if err != nil {
			return errorReply("application", "malformed-message", err.Error())
		}
		d.datastores[target] = config
		return OkReply()
	}

	source, reply := d.datastore(op.Source)
	if reply != nil {
		return reply
	}
	d.datastores[target] = clone(d.datastores[source])
	return OkReply()
}

func (d *Device) deleteConfig(sid uint64, op *operation) *Reply {
	target, reply := d.writableDatastore(sid, op.Target)
	if reply != nil {
		return reply
	}
	if target == Running {
		return errorReply("protocol", "invalid-value", "the running datastore cannot be deleted")
	}
	d.datastores[target] = nil
	return OkReply()
}

func (d *Device) lockDatastore(sid uint64, op *operation) *Reply {
	target, reply := d.datastore(op.Target)
	if reply != nil {
		return reply
	}
	if holder, ok := d.locks[target]; ok {
		e := rpcError("protocol", "lock-denied", fmt.Sprintf("lock on %s is held by session %d", target, holder))
		e.Info = fmt.Sprintf("<error-info><session-id>%d</session-id></error-info>", holder)
		return ErrorReply(e)
	}
	d.locks[target] = sid
	return OkReply()
}

func (d *Device) unlockDatastore(sid uint64, op *operation) *Reply {
	target, reply := d.datastore(op.Target)
	if reply != nil {
		return reply
	}
	if d.locks[target] != sid {
		return errorReply("protocol", "operation-failed", fmt.Sprintf("lock on %s is not held by session %d", target, sid))
	}
	delete(d.locks, target)
	return OkReply()
}

func (d *Device) killSession(h *SessionHandler, id uint64) *Reply {
	if id == h.ID() {
		return errorReply("protocol", "invalid-value", "a session cannot kill itself")
	}
	victim := h.server.session(id)
	if victim == nil {
		return errorReply("protocol", "invalid-value", fmt.Sprintf("session %d does not exist", id))
	}
	d.releaseLocks(id)
	victim.Close()
	return OkReply()
}

func (d *Device) datastore(ref *datastoreRef) (string, *Reply) {
	name := ref.name()
	if name == "" {
		return "", errorReply("protocol", "invalid-value", "a running, startup or candidate datastore is required")
	}
	return name, nil
}

func (d *Device) writableDatastore(sid uint64, ref *datastoreRef) (string, *Reply) {
	name, reply := d.datastore(ref)
	if reply != nil {
		return "", reply
	}
	return name, d.checkAccess(sid, name)
}

// checkAccess reports in-use if any of datastores is locked by a session other than sid.
func (d *Device) checkAccess(sid uint64, datastores ...string) *Reply {
	for _, ds := range datastores {
		if holder, ok := d.locks[ds]; ok && holder != sid {
			return errorReply("protocol", "in-use", fmt.Sprintf("%s is locked by session %d", ds, holder))
		}
	}
	return nil
}

// merge replaces elements of current by the edits of the same name, appending the others.
func merge(current, edits []*common.Element) []*common.Element {
	result := clone(current)
	for _, e := range edits {
		replaced := false
		for i, c := range result {
			if c.XMLName == e.XMLName {
				result[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			result = append(result, e)
		}
	}
	return result
}

func clone(elements []*common.Element) []*common.Element {
	return append([]*common.Element(nil), elements...)
}

func serialize(elements []*common.Element) string {
	var sb strings.Builder
	for _, e := range elements {
		sb.WriteString(e.String())
	}
	return sb.String()
}

func mustParse(text string) []*common.Element {
	elements, err := common.ParseElements(text)
	if err != nil {
		panic(err)
	}
	return elements
}

func rpcError(errType, tag, message string) common.RPCError {
	return common.RPCError{Type: errType, Tag: tag, Severity: "error", Message: message}
}

func errorReply(errType, tag, message string) *Reply {
	return ErrorReply(rpcError(errType, tag, message))
}
