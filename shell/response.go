package shell

import (
	"strings"
	"unicode"
	"unicode/utf8"

	textunicode "golang.org/x/text/encoding/unicode"
)

// DecodeText decodes clean controller output as UTF-8, replacing invalid
// byte sequences with U+FFFD instead of failing.
func DecodeText(b []byte) string {
	out, err := textunicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}

	return string(out)
}

// FilterResponse turns decoded controller output into the response of cmd.
//
// The text is split into lines on CRLF when present, otherwise on LF. Blank
// lines, prompt lines and lines starting with the first echoPrefixLen
// characters of the trimmed command (the controller's echo) are dropped. The
// remaining lines are right-trimmed and joined with "\n".
//
// Echo suppression is a heuristic: output that happens to start with the
// command prefix is dropped as well.
func FilterResponse(text, cmd string, echoPrefixLen int, prompt string) string {
	sep := "\n"
	if strings.Contains(text, "\r\n") {
		sep = "\r\n"
	}

	echo := echoPrefix(cmd, echoPrefixLen)
	prompt = strings.TrimSpace(prompt)

	var kept []string
	for _, line := range strings.Split(text, sep) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, echo) {
			continue
		}
		if prompt != "" && trimmed == prompt {
			continue
		}
		kept = append(kept, strings.TrimRightFunc(line, unicode.IsSpace))
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// echoPrefix returns the first n characters of the trimmed command.
func echoPrefix(cmd string, n int) string {
	cmd = strings.TrimSpace(cmd)
	if n <= 0 || utf8.RuneCountInString(cmd) <= n {
		return cmd
	}

	runes := []rune(cmd)

	return string(runes[:n])
}
