// Package pipeline implements the utterance processing pipeline: unbounded
// FIFO queues decouple capture from transcription and playback, and a single
// worker goroutine per stage keeps processing strictly serialized.
package pipeline
