// Package respond turns matched trigger phrases into reply text via an
// OpenAI-compatible chat completion API.
package respond
