package ops

import (
	"encoding/xml"

	"github.com/damianoneill/ncclient/netconf/common"
)

// Datastore names.
const (
	RunningCfg   = "running"
	CandidateCfg = "candidate"
	StartupCfg   = "startup"
)

// Values of the edit-config default-operation parameter.
const (
	MergeOp   = "merge"
	ReplaceOp = "replace"
	NoneOp    = "none"
)

// Values of the edit-config test-option parameter.
const (
	TestThenSetOpt = "test-then-set"
	SetOpt         = "set"
	TestOnlyOpt    = "test-only"
)

// Values of the edit-config error-option parameter.
const (
	StopOnErrorErrOpt     = "stop-on-error"
	ContinueOnErrorErrOpt = "continue-on-error"
	RollbackOnErrorErrOpt = "rollback-on-error"
)

// EditOption sets an optional parameter of edit-config.
type EditOption func(*editConfig)

// DefaultOperation sets the operation applied where the configuration does not name one.
func DefaultOperation(op string) EditOption {
	return func(r *editConfig) { r.DefaultOperation = op }
}

// TestOption sets whether the configuration is validated before it is applied.
func TestOption(opt string) EditOption {
	return func(r *editConfig) { r.TestOption = opt }
}

// ErrorOption sets how the device proceeds after an error.
func ErrorOption(opt string) EditOption {
	return func(r *editConfig) { r.ErrorOption = opt }
}

// datastore names a datastore inside a source or target element.
type datastore struct {
	Name string `xml:",innerxml"`
}

func datastoreRef(name string) *datastore {
	return &datastore{Name: "<" + name + "/>"}
}

type subtreeFilter struct {
	Type string `xml:"type,attr"`
	*common.Content
}

func filterOf(filter interface{}) *subtreeFilter {
	if filter == nil {
		return nil
	}
	return &subtreeFilter{Type: "subtree", Content: common.NewContent(filter)}
}

type get struct {
	XMLName xml.Name       `xml:"get"`
	Filter  *subtreeFilter `xml:"filter,omitempty"`
}

type getConfig struct {
	XMLName xml.Name       `xml:"get-config"`
	Source  *datastore     `xml:"source"`
	Filter  *subtreeFilter `xml:"filter,omitempty"`
}

type editConfig struct {
	XMLName          xml.Name        `xml:"edit-config"`
	Target           *datastore      `xml:"target"`
	DefaultOperation string          `xml:"default-operation,omitempty"`
	TestOption       string          `xml:"test-option,omitempty"`
	ErrorOption      string          `xml:"error-option,omitempty"`
	Config           *common.Content `xml:"config"`
}

type inlineConfig struct {
	Config *common.Content `xml:"config"`
}

type copyConfig struct {
	XMLName xml.Name      `xml:"copy-config"`
	Target  *datastore    `xml:"target"`
	Source  *inlineConfig `xml:"source"`
}

type lock struct {
	XMLName xml.Name
	Target  *datastore `xml:"target"`
}

// data is the data element of a reply.
type data struct {
	XMLName xml.Name    `xml:"data"`
	Value   interface{} `xml:",any"`
	Inner   string      `xml:",innerxml"`
}
