// Package viz is the interactive rendering host: a bubbletea program
// that owns the frame clock, advances the simulation once per tick, and
// draws the rendered coordinates on a braille canvas. The core never
// depends on it; it only consumes the System closures.
package viz
