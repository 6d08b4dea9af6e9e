// Package devicesim simulates the command line of a motion controller on a
// TCP listener.
//
// The simulator is good enough to drive the shell and upload packages end to
// end without hardware. On connect it sends telnet negotiation requests and a
// banner, then for every carriage-return terminated line it echoes the line,
// evaluates it and prints the ">>" prompt. Like the real controller it serves
// a single session at a time.
//
// Supported input:
//
//	PRINT <expr>             quoted string, number or ATYPE
//	BASE(<n>)                select the axis for ATYPE
//	ATYPE=<n>                set the axis type of the selected axis
//	SELECT <prog>            select (and create) a program
//	DIR                      list programs
//	!<prog>,N                line count
//	!<prog>,<i>D             delete line i
//	!<prog>,<i>I,<text>      insert text before line i
//	!<prog>,<a>,<b>L         list lines a..b
//	!<prog>,M                commit to flash (reports asynchronously)
//
// Anything else prints "%BAD SYNTAX". Tests can override the reply to any
// line with [Server.HandleFunc].
package devicesim
