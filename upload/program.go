package upload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Program is the ordered list of source lines to store on the controller.
type Program []string

// ParseProgram reads BASIC source from r. Lines are trimmed; blank lines and
// comment lines (starting with ') are skipped, since the controller keeps
// neither.
func ParseProgram(r io.Reader) (Program, error) {
	var prog Program

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "'") {
			continue
		}
		prog = append(prog, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("upload: read program: %w", err)
	}

	return prog, nil
}

// LoadProgram reads and parses the program file at path.
func LoadProgram(path string) (Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upload: open program: %w", err)
	}
	defer f.Close()

	return ParseProgram(f)
}
