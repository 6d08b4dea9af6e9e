// Package upload stores a BASIC program on a Trio controller through its
// command line, using the program editor ("EDPROG") commands.
//
// An upload runs these steps over one primed session:
//
//	SELECT <PROG>          make the program current, creating it if needed
//	!<PROG>,N              read the current line count
//	!<PROG>,0D             delete line 0, once per existing line
//	!<PROG>,<i>I,<line>    insert each source line at index i
//	!<PROG>,N              verify the new line count
//	!<PROG>,0,<n>L         list the first lines back
//	!<PROG>,M              commit the program to flash
//	DIR                    list the programs on the controller
//
// The controller reports failures as text: a response containing '%' is a
// device error. An error while inserting aborts the upload; a device error
// while deleting only stops the deletion, as the following inserts will
// report any real problem.
package upload
