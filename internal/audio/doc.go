// Package audio handles per-speaker PCM buffering and format conversion.
// It implements utterance accumulation with a preroll ring for speech onset,
// channel detection and downmixing, sample rate conversion for transcription,
// and WAV encoding.
package audio
