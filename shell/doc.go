// Package shell implements a command/response client for the interactive
// BASIC command line of a motion controller, reached over a raw telnet-style
// TCP connection.
//
// # Protocol Overview
//
// The controller shell is a plain text line protocol with no framing:
//
//	client:     PRINT ATYPE\r
//	controller: PRINT ATYPE\r\n       (echo)
//	            4\r\n                  (output)
//	            >>                     (prompt)
//
// Telnet negotiation sequences may appear anywhere in the received stream,
// and the controller sends some unsolicited right after connecting. There is
// no end-of-response marker, so the end of a reply is approximated by the
// line going quiet for a collection window.
//
// # Usage
//
//	cfg, err := shell.NewConnectionConfig("192.168.0.250", shell.DefaultPort)
//	if err != nil {
//	    return err
//	}
//
//	sess, err := shell.Dial(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	banner, err := sess.ConnectAndPrime()
//	...
//	resp, err := sess.Exchange("PRINT ATYPE")
//
// # Heuristics
//
// Two parts of the exchange are approximations that the controller gives no
// ground truth for, and both are tunable through [ConnOption]s:
//
//   - Reply completion: a reply ends when no byte arrives for the collect
//     window ([WithCollectWindow]). A slow multi-packet reply can be cut
//     short and a quiet controller yields an empty response.
//   - Echo suppression: lines starting with the first 20 characters of the
//     command are treated as its echo ([WithEchoPrefixLen]).
//
// Neither outcome is reported as an error.
package shell
