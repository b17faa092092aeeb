package shell

import (
	"strings"

	"github.com/damianoneill/ncclient/ncclient"

	"github.com/pkg/errors"
)

// ErrUnknownCommand is the cause of a failure to parse an unsupported command.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one of the commands supported by the shell.
// A nil Datastore field selects the shell's current datastore.
type Command interface {
	command()
}

type (
	// Get retrieves configuration and state, with an optional subtree filter.
	Get struct{ Filter string }
	// GetConfig retrieves a datastore, with an optional subtree filter.
	GetConfig struct {
		Datastore *ncclient.Datastore
		Filter    string
	}
	// Lock locks a datastore.
	Lock struct{ Datastore *ncclient.Datastore }
	// Unlock unlocks a datastore.
	Unlock struct{ Datastore *ncclient.Datastore }
	// EditConfig merges Config into a datastore.
	EditConfig struct {
		Datastore *ncclient.Datastore
		Config    string
	}
	// CopyConfig replaces a datastore with Config.
	CopyConfig struct {
		Datastore *ncclient.Datastore
		Config    string
	}
	// Commit commits the candidate datastore.
	Commit struct{}
	// Discard discards changes to the candidate datastore.
	Discard struct{}
	// Use selects the current datastore.
	Use struct{ Datastore ncclient.Datastore }
	// Info reports the session id and device capabilities.
	Info struct{}
	// Help lists the commands.
	Help struct{}
	// Exit ends the shell.
	Exit struct{}
)

func (Get) command()        {}
func (GetConfig) command()  {}
func (Lock) command()       {}
func (Unlock) command()     {}
func (EditConfig) command() {}
func (CopyConfig) command() {}
func (Commit) command()     {}
func (Discard) command()    {}
func (Use) command()        {}
func (Info) command()       {}
func (Help) command()       {}
func (Exit) command()       {}

// usage describes each command, in the order listed by help.
var usage = []struct{ name, args, text string }{
	{"get", "[filter]", "retrieve configuration and state data"},
	{"get-config", "[datastore] [filter]", "retrieve the configuration of a datastore"},
	{"lock", "[datastore]", "lock a datastore"},
	{"unlock", "[datastore]", "unlock a datastore"},
	{"edit-config", "[datastore] <config>", "merge configuration into a datastore"},
	{"copy-config", "[datastore] <config>", "replace the configuration of a datastore"},
	{"commit", "", "commit the candidate configuration"},
	{"discard-changes", "", "revert the candidate configuration to running"},
	{"use", "<datastore>", "select the datastore used when none is given"},
	{"info", "", "show the session id and device capabilities"},
	{"help", "", "show this help"},
	{"exit", "", "end the session"},
}

// Commands delivers the names of the supported commands.
func Commands() []string {
	names := make([]string, 0, len(usage))
	for _, u := range usage {
		names = append(names, u.name)
	}
	return names
}

// Parse delivers the command defined by line, or nil if line is blank.
// Xml arguments run to the end of the line.
func Parse(line string) (Command, error) {
	name, rest := splitWord(line)
	switch name {
	case "":
		return nil, nil
	case "get":
		return Get{Filter: rest}, nil
	case "get-config":
		ds, filter, err := optionalDatastore(rest)
		return GetConfig{Datastore: ds, Filter: filter}, err
	case "lock", "unlock":
		ds, extra, err := optionalDatastore(rest)
		if err == nil && extra != "" {
			err = errors.Errorf("unexpected argument %q", extra)
		}
		if name == "lock" {
			return Lock{Datastore: ds}, err
		}
		return Unlock{Datastore: ds}, err
	case "edit-config", "copy-config":
		ds, config, err := optionalDatastore(rest)
		if err == nil && config == "" {
			err = errors.Errorf("%s requires a configuration", name)
		}
		if name == "edit-config" {
			return EditConfig{Datastore: ds, Config: config}, err
		}
		return CopyConfig{Datastore: ds, Config: config}, err
	case "commit":
		return Commit{}, noArguments(rest)
	case "discard-changes":
		return Discard{}, noArguments(rest)
	case "use":
		if rest == "" {
			return nil, errors.New("use requires a datastore")
		}
		ds, err := ncclient.ParseDatastore(rest)
		return Use{Datastore: ds}, err
	case "info":
		return Info{}, noArguments(rest)
	case "help", "?":
		return Help{}, nil
	case "exit", "quit":
		return Exit{}, nil
	}
	return nil, errors.Wrap(ErrUnknownCommand, name)
}

// optionalDatastore consumes a leading datastore name from args, if present.
func optionalDatastore(args string) (*ncclient.Datastore, string, error) {
	word, rest := splitWord(args)
	if word == "" || strings.HasPrefix(word, "<") {
		return nil, args, nil
	}
	ds, err := ncclient.ParseDatastore(word)
	if err != nil {
		return nil, "", err
	}
	return &ds, rest, nil
}

func noArguments(args string) error {
	if args != "" {
		return errors.Errorf("unexpected argument %q", args)
	}
	return nil
}

func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
