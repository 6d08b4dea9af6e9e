package telnet

import "fmt"

// Command bytes.
const (
	SE   byte = 240 // Subnegotiation End
	NOP  byte = 241 // No Operation
	GA   byte = 249 // Go Ahead
	SB   byte = 250 // Subnegotiation Begin
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255 // Interpret As Command
)

// Option codes commonly proposed by controller shells.
const (
	OptBinary          byte = 0
	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptStatus          byte = 5
	OptTerminalType    byte = 24
	OptNAWS            byte = 31
	OptLinemode        byte = 34
)

var commandNames = map[byte]string{
	SE:   "SE",
	NOP:  "NOP",
	GA:   "GA",
	SB:   "SB",
	WILL: "WILL",
	WONT: "WONT",
	DO:   "DO",
	DONT: "DONT",
	IAC:  "IAC",
}

var optionNames = map[byte]string{
	OptBinary:          "BINARY",
	OptEcho:            "ECHO",
	OptSuppressGoAhead: "SGA",
	OptStatus:          "STATUS",
	OptTerminalType:    "TTYPE",
	OptNAWS:            "NAWS",
	OptLinemode:        "LINEMODE",
}

// CommandName returns the mnemonic of a command byte, or its decimal value.
func CommandName(b byte) string {
	if name, ok := commandNames[b]; ok {
		return name
	}

	return fmt.Sprintf("CMD(%d)", b)
}

// OptionName returns the mnemonic of an option code, or its decimal value.
func OptionName(b byte) string {
	if name, ok := optionNames[b]; ok {
		return name
	}

	return fmt.Sprintf("OPT(%d)", b)
}

// Directive is one IAC command/option triple.
type Directive struct {
	Command byte
	Option  byte
}

// Bytes returns the wire form of the directive.
func (d Directive) Bytes() []byte {
	return []byte{IAC, d.Command, d.Option}
}

func (d Directive) String() string {
	return CommandName(d.Command) + " " + OptionName(d.Option)
}
