package telnet

import "io"

// Policy decides how to answer a single negotiation directive.
//
// Reply returns the command byte to send back for option opt, and false when
// the directive needs no answer.
type Policy interface {
	Reply(cmd, opt byte) (byte, bool)
}

type acceptAll struct{}

func (acceptAll) Reply(cmd, _ byte) (byte, bool) {
	switch cmd {
	case DO:
		return WILL, true
	case WILL:
		return DO, true
	}

	return 0, false
}

// AcceptAll agrees to every proposal regardless of the option: DO is
// answered with WILL and WILL with DO. Other commands are ignored.
var AcceptAll Policy = acceptAll{}

// OptionTable is a Policy that accepts or refuses individual options.
//
// An option mapped to false is refused (DO gets WONT, WILL gets DONT).
// Options missing from the table are accepted.
type OptionTable map[byte]bool

func (t OptionTable) Reply(cmd, opt byte) (byte, bool) {
	accept, ok := t[opt]
	if !ok || accept {
		return AcceptAll.Reply(cmd, opt)
	}

	switch cmd {
	case DO:
		return WONT, true
	case WILL:
		return DONT, true
	}

	return 0, false
}

// Parse returns every complete IAC directive found in raw, in order.
// Escaped IAC IAC pairs are data and are skipped.
func Parse(raw []byte) []Directive {
	var dirs []Directive

	for i := 0; i < len(raw); {
		if raw[i] != IAC {
			i++
			continue
		}
		if i+1 < len(raw) && raw[i+1] == IAC {
			i += 2
			continue
		}
		if i+2 >= len(raw) {
			break
		}

		dirs = append(dirs, Directive{Command: raw[i+1], Option: raw[i+2]})
		i += 3
	}

	return dirs
}

// Replies builds the reply buffer for every directive in raw using p.
// A nil policy means AcceptAll. The result is nil when nothing needs an answer.
func Replies(raw []byte, p Policy) []byte {
	if p == nil {
		p = AcceptAll
	}

	var out []byte
	for _, d := range Parse(raw) {
		if reply, ok := p.Reply(d.Command, d.Option); ok {
			out = append(out, IAC, reply, d.Option)
		}
	}

	return out
}

// Respond writes the replies for raw to w in a single Write call and returns
// the bytes written. Nothing is written when no directive needs an answer.
func Respond(w io.Writer, raw []byte, p Policy) ([]byte, error) {
	reply := Replies(raw, p)
	if len(reply) == 0 {
		return nil, nil
	}

	if _, err := w.Write(reply); err != nil {
		return nil, err
	}

	return reply, nil
}
