// Package ops issues the base protocol operations over a netconf session.
package ops

import (
	"encoding/xml"

	"github.com/damianoneill/ncclient/netconf/client"
	"github.com/damianoneill/ncclient/netconf/common"

	"github.com/pkg/errors"
)

// OpSession is a session issuing the base protocol operations.
//
// Retrieval operations deliver the content of the reply data element into result, which may be:
//   - a *string, receiving the content verbatim;
//   - a *[]*common.Element, receiving each child of the data element, re-declaring the namespaces
//     it inherited from the reply;
//   - a pointer to a value unmarshalled from the single child of the data element.
//
// A filter, or a configuration, is verbatim xml text, a *common.Element, or a value marshalled with its xml tags.
type OpSession interface {
	client.Session

	// GetSubtree retrieves running configuration and state data, selected by a subtree filter.
	// A nil filter selects everything.
	GetSubtree(filter, result interface{}) error

	// GetConfigSubtree retrieves the configuration held by source, selected by a subtree filter.
	GetConfigSubtree(filter interface{}, source string, result interface{}) error

	// EditConfigCfg applies config to target.
	EditConfigCfg(target string, config interface{}, options ...EditOption) error

	// CopyConfigCfg replaces the content of target with config.
	CopyConfigCfg(target string, config interface{}) error

	// Lock locks target for the exclusive use of the session.
	Lock(target string) error

	// Unlock releases a lock held by the session on target.
	Unlock(target string) error

	// Commit makes the candidate configuration the running configuration.
	Commit() error

	// Discard reverts the candidate configuration to the running configuration.
	Discard() error

	// CloseSession asks the server to end the session gracefully.
	CloseSession() error
}

type opSession struct {
	client.Session
}

// NewOpSession delivers an OpSession issuing operations over s.
func NewOpSession(s client.Session) OpSession {
	return &opSession{Session: s}
}

func (s *opSession) GetSubtree(filter, result interface{}) error {
	return s.retrieve(&get{Filter: filterOf(filter)}, result)
}

func (s *opSession) GetConfigSubtree(filter interface{}, source string, result interface{}) error {
	return s.retrieve(&getConfig{Source: datastoreRef(source), Filter: filterOf(filter)}, result)
}

func (s *opSession) EditConfigCfg(target string, config interface{}, options ...EditOption) error {
	req := &editConfig{Target: datastoreRef(target), Config: common.NewContent(config)}
	for _, opt := range options {
		opt(req)
	}
	return s.execute(req)
}

func (s *opSession) CopyConfigCfg(target string, config interface{}) error {
	return s.execute(&copyConfig{Target: datastoreRef(target), Source: &inlineConfig{Config: common.NewContent(config)}})
}

func (s *opSession) Lock(target string) error {
	return s.execute(&lock{XMLName: xml.Name{Local: "lock"}, Target: datastoreRef(target)})
}

func (s *opSession) Unlock(target string) error {
	return s.execute(&lock{XMLName: xml.Name{Local: "unlock"}, Target: datastoreRef(target)})
}

func (s *opSession) Commit() error {
	return s.execute(`<commit/>`)
}

func (s *opSession) Discard() error {
	return s.execute(`<discard-changes/>`)
}

func (s *opSession) CloseSession() error {
	return s.execute(`<close-session/>`)
}

func (s *opSession) execute(req common.Request) error {
	_, err := s.Execute(req)
	return err
}

func (s *opSession) retrieve(req common.Request, result interface{}) error {
	reply, err := s.Execute(req)
	if err != nil {
		return err
	}
	return decodeData(reply, result)
}

func decodeData(reply *common.RPCReply, result interface{}) error {
	switch result := result.(type) {
	case *[]*common.Element:
		elements, err := common.ChildElements(reply.Data, reply.Namespaces)
		if err != nil {
			return errors.Wrap(err, "malformed reply data")
		}
		*result = elements
		return nil
	case *string:
		d := &data{}
		if err := xml.Unmarshal([]byte(reply.Data), d); err != nil {
			return errors.Wrap(err, "malformed reply data")
		}
		*result = d.Inner
		return nil
	}

	if err := xml.Unmarshal([]byte(reply.Data), &data{Value: result}); err != nil {
		return errors.Wrap(err, "malformed reply data")
	}
	return nil
}
