package devicesim

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
)

const badSyntax = "%BAD SYNTAX"

var (
	basePattern   = regexp.MustCompile(`^BASE\s*\(\s*(\d+)\s*\)$`)
	atypePattern  = regexp.MustCompile(`^ATYPE\s*=\s*(-?\d+)$`)
	editPattern   = regexp.MustCompile(`^!([A-Za-z_][A-Za-z0-9_]*),(.*)$`)
	deletePattern = regexp.MustCompile(`^(\d+)\s*[Dd]$`)
	insertPattern = regexp.MustCompile(`^(\d+)\s*[Ii],(.*)$`)
	listPattern   = regexp.MustCompile(`^(\d+),(\d+)\s*[Ll]$`)
)

// eval runs one command line and returns its output lines.
func (ss *session) eval(line string) []string {
	trimmed := strings.TrimSpace(line)
	upper := strings.ToUpper(trimmed)

	switch {
	case trimmed == "":
		return nil

	case strings.HasPrefix(trimmed, "!"):
		return ss.edit(trimmed)

	case upper == "PRINT" || strings.HasPrefix(upper, "PRINT "):
		return ss.print(strings.TrimSpace(trimmed[len("PRINT"):]))

	case upper == "DIR":
		return ss.dir()

	case strings.HasPrefix(upper, "SELECT "):
		name := strings.ToUpper(strings.TrimSpace(trimmed[len("SELECT "):]))
		if name == "" {
			return []string{badSyntax}
		}
		ss.srv.programs.LoadOrStore(name, nil)
		ss.selected = name

		return []string{name + " selected"}
	}

	if m := basePattern.FindStringSubmatch(upper); m != nil {
		ss.base, _ = strconv.Atoi(m[1])
		return nil
	}

	if m := atypePattern.FindStringSubmatch(upper); m != nil {
		atype, _ := strconv.Atoi(m[1])

		ss.srv.axisMu.Lock()
		ss.srv.axisTypes[ss.base] = atype
		ss.srv.axisMu.Unlock()

		return nil
	}

	return []string{badSyntax}
}

func (ss *session) print(expr string) []string {
	switch {
	case expr == "":
		return []string{""}

	case len(expr) >= 2 && expr[0] == '"' && expr[len(expr)-1] == '"':
		return []string{expr[1 : len(expr)-1]}

	case strings.EqualFold(expr, "ATYPE"):
		return []string{strconv.Itoa(ss.srv.AxisType(ss.base))}
	}

	if v, err := strconv.ParseFloat(expr, 64); err == nil {
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	}

	return []string{badSyntax}
}

func (ss *session) dir() []string {
	type entry struct {
		name  string
		lines int
	}

	var entries []entry
	ss.srv.programs.Range(func(name string, lines []string) bool {
		entries = append(entries, entry{name: name, lines: len(lines)})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	out := []string{"Program    Lines"}
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%-10s %5d", e.name, e.lines))
	}

	return out
}

// edit runs a program editor command: "!<prog>,<op>".
func (ss *session) edit(cmd string) []string {
	m := editPattern.FindStringSubmatch(cmd)
	if m == nil {
		return []string{badSyntax}
	}

	name, op := strings.ToUpper(m[1]), m[2]
	lines, ok := ss.srv.programs.Load(name)
	if !ok {
		return []string{"%PROGRAM NOT FOUND"}
	}

	switch strings.ToUpper(strings.TrimSpace(op)) {
	case "N":
		return []string{strconv.Itoa(len(lines))}
	case "M":
		ss.srv.committed.Store(name, slices.Clone(lines))
		ss.commitLater(name)

		return nil
	}

	if sm := deletePattern.FindStringSubmatch(op); sm != nil {
		idx, _ := strconv.Atoi(sm[1])
		return ss.modify(name, func(old []string) ([]string, bool) {
			if idx >= len(old) {
				return old, false
			}
			next := make([]string, 0, len(old)-1)
			next = append(next, old[:idx]...)

			return append(next, old[idx+1:]...), true
		})
	}

	if sm := insertPattern.FindStringSubmatch(op); sm != nil {
		idx, _ := strconv.Atoi(sm[1])
		text := sm[2]

		return ss.modify(name, func(old []string) ([]string, bool) {
			if idx > len(old) {
				return old, false
			}
			next := make([]string, 0, len(old)+1)
			next = append(next, old[:idx]...)
			next = append(next, text)

			return append(next, old[idx:]...), true
		})
	}

	if sm := listPattern.FindStringSubmatch(op); sm != nil {
		from, _ := strconv.Atoi(sm[1])
		to, _ := strconv.Atoi(sm[2])

		var out []string
		for i := from; i <= to && i < len(lines); i++ {
			out = append(out, lines[i])
		}

		return out
	}

	return []string{badSyntax}
}

// modify replaces a program's lines through fn. fn reports false when the
// line number is out of range.
func (ss *session) modify(name string, fn func([]string) ([]string, bool)) []string {
	valid := true
	ss.srv.programs.Compute(name, func(old []string, _ bool) ([]string, bool) {
		next, ok := fn(old)
		valid = ok

		return next, false
	})

	if !valid {
		return []string{"%INVALID LINE NUMBER"}
	}

	return nil
}
