// Package game defines the boundary to the host game process: the ultimate
// source and sink of chat messages, and the out-of-band channel for OTP
// delivery.
package game

import "github.com/google/uuid"

// Sink is what the bridge sees of the game. The game loop is strictly
// single-threaded: everything except Execute must only be called from a
// function scheduled via Execute.
type Sink interface {
	// Execute marshals fn onto the game's execution context. It must not
	// block the caller; fn runs asynchronously.
	Execute(fn func())

	// DeliverChat shows a web user's chat line to in-game players.
	DeliverChat(sender, text string)

	// DeliverNotice shows a system notice (joins, leaves) to in-game players.
	DeliverNotice(text string)

	// LookupPlayer resolves an online player's name to their identity.
	LookupPlayer(name string) (uuid.UUID, bool)

	// Whisper sends a private message to one online player. Used to deliver
	// OTP codes out of band.
	Whisper(playerID uuid.UUID, text string)

	// PlayerNames lists the display names of all online players.
	PlayerNames() []string
}

// Events is the callback surface the game drives. The bridge implements it;
// calls may arrive from the game loop at any time.
type Events interface {
	// GameChat relays an in-game chat line to the web side.
	GameChat(sender, text string)

	// PlayerJoined fires after a player connects to the game.
	PlayerJoined(name string)

	// PlayerLeft fires after a player disconnects from the game.
	PlayerLeft(name string)
}
