// Package capture receives per-speaker PCM fragments from the voice
// transport and turns them into finalized utterance clips. The Sink is the
// transport-facing boundary: it validates, never blocks, and drops bad input
// silently. The Finalizer sweeps speaker buffers on a fixed tick and emits
// clips into the transcription queue once a speaker has gone quiet.
package capture
