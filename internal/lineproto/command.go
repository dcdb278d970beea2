// Package lineproto implements the binding daemon's Unix line protocol
// (spec.md §4.E/§6): request parsing, percent-encoding for AUTH passwords,
// and the colon/comma serializations identity commands reply with.
package lineproto

import (
	"fmt"
	"strings"
)

// Verb names one of the daemon's request lines.
type Verb string

const (
	VerbGetPwNam   Verb = "GETPWNAM"
	VerbGetPwUid   Verb = "GETPWUID"
	VerbGetGrNam   Verb = "GETGRNAM"
	VerbGetGrGid   Verb = "GETGRGID"
	VerbGetGidList Verb = "GETGIDLIST"
	VerbAuth       Verb = "AUTH"
	VerbPam        Verb = "PAM"
	VerbSet        Verb = "SET"
)

// Command is one parsed request line. Field meaning depends on Verb:
//   - GETPWNAM/GETGRNAM/GETGIDLIST: Arg is the name.
//   - GETPWUID/GETGRGID: Arg is the numeric id, still as text — the daemon
//     decides how to use it (peer-policy comparison needs the raw digits).
//   - AUTH: Arg is the name, Password is already percent-decoded, Service
//     and Remote are optional and empty when absent.
//   - PAM: Arg is the protocol version.
//   - SET: Key/Value hold the accumulated context entry.
type Command struct {
	Verb     Verb
	Arg      string
	Password string
	Service  string
	Remote   string
	Key      string
	Value    string
}

// ParseCommand parses one newline-stripped request line. Tokens are
// separated by single spaces per spec.md §6; a malformed line (unknown
// verb, wrong argument count) is a *ParseError.
func ParseCommand(line string) (Command, error) {
	fields := strings.Split(line, " ")
	if len(fields) == 0 || fields[0] == "" {
		return Command{}, &ParseError{Line: line, Reason: "empty request"}
	}
	verb := Verb(fields[0])
	args := fields[1:]

	switch verb {
	case VerbGetPwNam, VerbGetPwUid, VerbGetGrNam, VerbGetGrGid, VerbGetGidList:
		if len(args) != 1 {
			return Command{}, &ParseError{Line: line, Reason: fmt.Sprintf("%s takes exactly one argument", verb)}
		}
		return Command{Verb: verb, Arg: args[0]}, nil

	case VerbAuth:
		if len(args) < 2 || len(args) > 4 {
			return Command{}, &ParseError{Line: line, Reason: "AUTH takes name, password, and up to two optional fields"}
		}
		password, err := PercentDecode(args[1])
		if err != nil {
			return Command{}, &ParseError{Line: line, Reason: "malformed password: " + err.Error()}
		}
		cmd := Command{Verb: verb, Arg: args[0], Password: password}
		if len(args) > 2 {
			cmd.Service = args[2]
		}
		if len(args) > 3 {
			cmd.Remote = args[3]
		}
		return cmd, nil

	case VerbPam:
		if len(args) != 1 {
			return Command{}, &ParseError{Line: line, Reason: "PAM takes exactly one argument"}
		}
		return Command{Verb: verb, Arg: args[0]}, nil

	case VerbSet:
		if len(args) != 1 {
			return Command{}, &ParseError{Line: line, Reason: "SET takes exactly one key=value argument"}
		}
		key, value, found := strings.Cut(args[0], "=")
		if !found {
			return Command{}, &ParseError{Line: line, Reason: "SET argument must be key=value"}
		}
		return Command{Verb: verb, Key: key, Value: value}, nil

	default:
		return Command{}, &ParseError{Line: line, Reason: "unknown verb " + string(verb)}
	}
}

// ParseError reports a malformed request line; the daemon turns it into a
// "400 …" reply per spec.md §6.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return "lineproto: " + e.Reason
}

// Target names the map lookup an identity command's Verb always performs:
// a fixed map name and keyname, with the Command's Arg as the key value.
// ok is false for AUTH/PAM/SET, which have no map target.
func Target(verb Verb) (mapName, keyName string, ok bool) {
	switch verb {
	case VerbGetPwNam:
		return "passwd", "name", true
	case VerbGetPwUid:
		return "passwd", "uid", true
	case VerbGetGrNam:
		return "group", "name", true
	case VerbGetGrGid:
		return "group", "gid", true
	case VerbGetGidList:
		return "gidlist", "name", true
	default:
		return "", "", false
	}
}
