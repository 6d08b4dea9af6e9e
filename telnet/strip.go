package telnet

// Strip removes telnet control framing from data and returns the clean text.
//
// Every IAC command/option triple is dropped and an escaped IAC IAC pair is
// collapsed to a single 0xFF. A directive cut short at the end of data (IAC
// followed by only one byte) is dropped silently, since a collection window
// can end in the middle of a frame. A lone trailing IAC is kept as data.
//
// Strip never fails and does not modify data.
func Strip(data []byte) []byte {
	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); {
		if data[i] != IAC || i+1 >= len(data) {
			out = append(out, data[i])
			i++

			continue
		}

		switch {
		case data[i+1] == IAC:
			out = append(out, IAC)
			i += 2
		case i+2 < len(data):
			i += 3
		default:
			i += 2
		}
	}

	return out
}
