package ncclient

import (
	"strings"
	"time"

	"github.com/damianoneill/ncclient/netconf/common"

	"github.com/pkg/errors"
)

// Session issues datastore operations over the connection's engine session.
// Every failure is reported as an *OperationError. Once the owning connection is disconnected, or if the session is
// nil, operations fail with ErrNotConnected without any exchange with the device.
type Session struct {
	engine Engine
	trace  *Trace
}

// ID delivers the session id assigned by the device, or zero if the session is not connected.
func (s *Session) ID() uint64 {
	if s == nil || s.engine == nil {
		return 0
	}
	return s.engine.ID()
}

// Capabilities delivers the capabilities advertised by the device.
func (s *Session) Capabilities() []string {
	if s == nil || s.engine == nil {
		return nil
	}
	return s.engine.ServerCapabilities()
}

// Get retrieves running configuration and state data, restricted by an optional subtree filter.
func (s *Session) Get(filter string) (*common.Element, error) {
	var result []*common.Element
	err := s.run("get", "", func(e Engine) error {
		return e.GetSubtree(filterOf(filter), &result)
	})
	if err != nil {
		return nil, err
	}
	return ToDocument(result), nil
}

// GetConfig retrieves the configuration held by ds, restricted by an optional subtree filter.
func (s *Session) GetConfig(ds Datastore, filter string) (*common.Element, error) {
	var result []*common.Element
	err := s.runOn("get-config", ds, func(e Engine, target string) error {
		return e.GetConfigSubtree(filterOf(filter), target, &result)
	})
	if err != nil {
		return nil, err
	}
	return ToDocument(result), nil
}

// Lock locks ds for the exclusive use of the session. A lock held elsewhere is reported immediately.
func (s *Session) Lock(ds Datastore) error {
	return s.runOn("lock", ds, func(e Engine, target string) error {
		return e.Lock(target)
	})
}

// Unlock releases a lock held on ds.
func (s *Session) Unlock(ds Datastore) error {
	return s.runOn("unlock", ds, func(e Engine, target string) error {
		return e.Unlock(target)
	})
}

// EditConfig merges the configuration document config into ds.
func (s *Session) EditConfig(ds Datastore, config string) error {
	return s.runOn("edit-config", ds, func(e Engine, target string) error {
		cfg, err := parseConfig(config)
		if err != nil {
			return err
		}
		return e.EditConfigCfg(target, cfg)
	})
}

// CopyConfig replaces the content of ds with the configuration document config.
func (s *Session) CopyConfig(ds Datastore, config string) error {
	return s.runOn("copy-config", ds, func(e Engine, target string) error {
		cfg, err := parseConfig(config)
		if err != nil {
			return err
		}
		return e.CopyConfigCfg(target, cfg)
	})
}

// Commit makes the candidate configuration the running configuration.
func (s *Session) Commit() error {
	return s.run("commit", "", func(e Engine) error {
		return e.Commit()
	})
}

// DiscardChanges reverts the candidate configuration to the running configuration.
func (s *Session) DiscardChanges() error {
	return s.run("discard-changes", "", func(e Engine) error {
		return e.Discard()
	})
}

func (s *Session) runOn(operation string, ds Datastore, fn func(e Engine, target string) error) error {
	target, ok := ds.selector()
	if !ok {
		return &OperationError{Operation: operation, Datastore: ds.String(), Err: errors.New("unknown datastore")}
	}
	return s.run(operation, target, func(e Engine) error {
		return fn(e, target)
	})
}

func (s *Session) run(operation, datastore string, fn func(e Engine) error) (err error) {
	if s == nil || s.engine == nil {
		return &OperationError{Operation: operation, Datastore: datastore, Err: ErrNotConnected}
	}

	s.trace.OperationStart(operation, datastore)
	defer func(begin time.Time) {
		s.trace.OperationDone(operation, datastore, err, time.Since(begin))
	}(time.Now())

	if err = fn(s.engine); err != nil {
		err = &OperationError{Operation: operation, Datastore: datastore, Err: err}
	}
	return err
}

func parseConfig(config string) (*common.Element, error) {
	cfg, err := common.ParseElement(config)
	return cfg, errors.Wrap(err, "invalid configuration")
}

// filterOf delivers the subtree filter argument for the engine. A blank filter selects everything.
func filterOf(filter string) interface{} {
	if strings.TrimSpace(filter) == "" {
		return nil
	}
	return filter
}
