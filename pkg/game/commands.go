package game

// commandGenerators is the fixed-order table of action generators
// GameState.Commands() iterates: one function per action kind,
// mirroring the original engine's static array of free functions
// rather than any global mutable registry.
var commandGenerators = []func(GameState) []Action{
	generateMoveCommands,
	generateShootCommands,
	generateChargeCommands,
	generateFightCommands,
	generateEndPhaseCommands,
}
