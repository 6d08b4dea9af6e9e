// Package telnet implements the small subset of telnet framing needed to talk
// to a controller shell over a raw TCP socket.
//
// It is not a telnet library. There is no option state machine and no
// subnegotiation support; the package only
//
//   - removes IAC control sequences from received bytes ([Strip]), and
//   - answers DO/WILL option requests so that the peer does not stall
//     waiting for a reply ([Replies], [Respond]).
//
// # Wire Framing
//
// A negotiation directive is the 3-byte sequence
//
//	IAC (0xFF)  command  option
//
// where command is one of DO (0xFD), WILL (0xFB), DONT (0xFE) or WONT (0xFC).
// A literal 0xFF data byte is sent escaped as IAC IAC.
//
// # Negotiation Policy
//
// By default every proposal is accepted ([AcceptAll]): DO is answered with
// WILL and WILL with DO. An [OptionTable] can refuse selected options, in
// which case DO is answered with WONT and WILL with DONT.
package telnet
