// Package tts renders response text to WAV files via external synthesis
// engines. Piper is the preferred engine; espeak is the fallback.
package tts
