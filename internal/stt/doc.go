// Package stt implements the speech-to-text HTTP client. Clips arrive as
// WAV data, go out as multipart uploads, and come back as text. The client
// limits concurrency with a semaphore and retries transient failures with
// exponential backoff.
package stt
