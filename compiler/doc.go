/*

Process of compilation

Allocated IR (yaml) ->
	front ->
Op stream (front.Unit) ->
	check against back.Constraint ->
	back.Func.Ins (lower) ->
Function body ->
	back.Func.Wrap ->
Function with prologue and epilogue ->
	back.Func.Code (resolve jumps) ->
Binary Object (back.Object) ->
	Image (link relocations) ->
Henlo machine code

*/
package compiler
