package ncclient

import (
	"fmt"

	"github.com/damianoneill/ncclient/netconf/ops"

	"github.com/pkg/errors"
)

// Datastore identifies the configuration datastore targeted by an operation.
// The zero value is Running.
type Datastore int

const (
	Running Datastore = iota
	Startup
	Candidate
)

var datastoreSelectors = map[Datastore]string{
	Running:   ops.RunningCfg,
	Startup:   ops.StartupCfg,
	Candidate: ops.CandidateCfg,
}

// Datastores delivers every datastore, in declaration order.
func Datastores() []Datastore {
	return []Datastore{Running, Startup, Candidate}
}

// ParseDatastore delivers the datastore with the given protocol name.
// An empty name selects Running.
func ParseDatastore(name string) (Datastore, error) {
	if name == "" {
		return Running, nil
	}
	for _, ds := range Datastores() {
		if datastoreSelectors[ds] == name {
			return ds, nil
		}
	}
	return Running, errors.Errorf("unknown datastore %q", name)
}

func (d Datastore) String() string {
	if s, ok := d.selector(); ok {
		return s
	}
	return fmt.Sprintf("Datastore(%d)", int(d))
}

// selector delivers the protocol name used to address the datastore on the wire.
func (d Datastore) selector() (string, bool) {
	s, ok := datastoreSelectors[d]
	return s, ok
}
