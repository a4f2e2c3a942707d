package pipeline

// ClipJob is a finalized utterance waiting for transcription. PCM is raw
// 16-bit little-endian audio at the capture rate.
type ClipJob struct {
	ID          string
	SessionID   string
	SpeakerID   string
	DisplayName string
	PCM         []byte
	Channels    int
}

// PlaybackItem is a synthesized response file waiting for playback into the
// voice channel of its session.
type PlaybackItem struct {
	SessionID string
	Path      string
}
