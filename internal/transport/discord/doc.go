// Package discord implements the voice transport over the Discord gateway.
// The receiver decodes incoming opus frames into PCM for the capture sink,
// and the link encodes synthesized WAV files back into the channel.
package discord
