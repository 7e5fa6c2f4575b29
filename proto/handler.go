// Package proto defines the handler contract shared by every modal
// step of the user interface: the Handler interface, the verb-table
// command loop each concrete handler builds at construction, and the
// reserved-verb vocabulary common to all of them.
package proto

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/blastus/confabulator/transport"
)

// YESWords are the affirmative answers accepted wherever a handler
// asks for confirmation.
var YESWords = map[string]bool{"yes": true, "true": true, "1": true}

// StopWords always pop the handler that reads them, regardless of
// whether the handler registered its own verb for them.
var StopWords = map[string]bool{"exit": true, "quit": true, "stop": true}

// IsYes reports whether s (case-sensitive, as typed) is one of
// YESWords.
func IsYes(s string) bool {
	return YESWords[s]
}

// Kind tags an Outcome as either a continuation of the current
// handler's command loop, a request to push a new handler on top of
// the stack, or a request to pop the current handler.
type Kind int

const (
	// KindContinue means: stay in the current handler's loop.
	KindContinue Kind = iota
	// KindPush means: descend into Outcome.Next.
	KindPush
	// KindPop means: return control to the caller's parent frame.
	KindPop
)

// Outcome is the tagged sum type a Handler or verb function returns:
// Push(handler), Pop, or (for a verb function only) Continue.
type Outcome struct {
	Kind Kind
	Next Handler
}

// Continue resumes the current command loop.
func Continue() Outcome { return Outcome{Kind: KindContinue} }

// Push descends into next.
func Push(next Handler) Outcome { return Outcome{Kind: KindPush, Next: next} }

// Pop returns to the parent frame.
func Pop() Outcome { return Outcome{Kind: KindPop} }

// Handler drives one modal step of the user interface. Handle is the
// one-shot entry point; it returns Push, Pop, or an error. A returned
// error wrapping transport.ErrDisconnect unwinds the entire
// connection, not just this frame.
type Handler interface {
	Handle(conn *transport.Conn) (Outcome, error)
}

// VerbFunc implements one do_<verb> command. args holds the
// whitespace-tokenized words following the verb itself.
type VerbFunc func(conn *transport.Conn, args []string) (Outcome, error)

// Verb pairs a command implementation with its one-line help text.
type Verb struct {
	Func VerbFunc
	Doc  string
}

// CommandLoop is the reusable engine behind command_loop: repeatedly
// read a line, tokenize it, and dispatch the first token to a
// registered Verb. Concrete handlers embed a CommandLoop and populate
// Verbs at construction time.
type CommandLoop struct {
	Verbs map[string]Verb

	suppressPrompt bool
}

// NewCommandLoop builds a CommandLoop over a fixed verb table.
func NewCommandLoop(verbs map[string]Verb) CommandLoop {
	return CommandLoop{Verbs: verbs}
}

// Run drives the loop until a verb returns Push or Pop, or reading a
// line fails (the error, typically transport.ErrDisconnect, is
// propagated to the caller unchanged).
func (cl *CommandLoop) Run(conn *transport.Conn, prompt string) (Outcome, error) {
	for {
		p := prompt
		if cl.suppressPrompt {
			p = ""
			cl.suppressPrompt = false
		}
		line, err := conn.Input(p)
		if err != nil {
			return Outcome{}, err
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		verb, args := tokens[0], tokens[1:]

		if StopWords[verb] {
			return Pop(), nil
		}
		if verb == "?" {
			verb = "help"
		}
		if verb == "__json_help__" {
			if err := cl.jsonHelp(conn); err != nil {
				return Outcome{}, err
			}
			cl.suppressPrompt = true
			continue
		}
		if verb == "help" {
			if err := cl.help(conn, args); err != nil {
				return Outcome{}, err
			}
			continue
		}

		v, ok := cl.Verbs[verb]
		if !ok {
			if err := conn.Println("Command not found!"); err != nil {
				return Outcome{}, err
			}
			continue
		}
		out, err := v.Func(conn, args)
		if err != nil {
			return Outcome{}, err
		}
		switch out.Kind {
		case KindPush, KindPop:
			return out, nil
		default:
			continue
		}
	}
}

func (cl *CommandLoop) help(conn *transport.Conn, args []string) error {
	if len(args) == 0 {
		names := make([]string, 0, len(cl.Verbs))
		for name := range cl.Verbs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := conn.Println(name); err != nil {
				return err
			}
		}
		return nil
	}
	v, ok := cl.Verbs[args[0]]
	if !ok || v.Doc == "" {
		return conn.Println("Command has no help!")
	}
	return conn.Println(v.Doc)
}

func (cl *CommandLoop) jsonHelp(conn *transport.Conn) error {
	docs := make(map[string]string, len(cl.Verbs))
	for name, v := range cl.Verbs {
		docs[name] = v.Doc
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	return conn.Println(string(b))
}
