// Package transport defines the contract between a voice transport and the
// capture stage. Concrete transports live in subpackages.
package transport

// Sink receives decoded PCM fragments and speaking transitions from a voice
// transport. Implementations must return quickly and never block the
// transport's receive loop. Reset discards all accumulated speaker state;
// the transport calls it when a connection is rebuilt, so audio captured
// before the failure is never stitched onto post-reconnect audio.
type Sink interface {
	OnAudio(speakerID string, pcm []byte, channelHint int)
	OnSpeakingStart(speakerID, displayName string)
	OnSpeakingStop(speakerID string)
	Reset()
}
