package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodeWAV encodes PCM-16 bytes into WAV format
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio data")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("channels must be 1 or 2, got %d", channels)
	}

	numChannels := uint16(channels)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(pcm))
	fileSize := 36 + dataSize

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     fileSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	if _, err := buf.Write(pcm); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeWAV decodes WAV data back to raw PCM-16 bytes, returning the sample
// rate and channel count from the header
func DecodeWAV(data []byte) ([]byte, int, int, error) {
	if len(data) < 44 {
		return nil, 0, 0, fmt.Errorf("WAV data too short: need at least 44 bytes, got %d", len(data))
	}

	buf := bytes.NewReader(data)
	var header WAVHeader

	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(header.Format[:]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if string(header.Subchunk2ID[:]) != "data" {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: missing data chunk")
	}

	if header.AudioFormat != 1 {
		return nil, 0, 0, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}

	if header.BitsPerSample != 16 {
		return nil, 0, 0, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)
	}

	if header.NumChannels != 1 && header.NumChannels != 2 {
		return nil, 0, 0, fmt.Errorf("unsupported channel count: %d", header.NumChannels)
	}

	dataSize := int(header.Subchunk2Size)
	if dataSize <= 0 || dataSize > len(data)-44 {
		return nil, 0, 0, fmt.Errorf("invalid data chunk size: %d", header.Subchunk2Size)
	}

	pcm := make([]byte, dataSize)
	copy(pcm, data[44:44+dataSize])

	return pcm, int(header.SampleRate), int(header.NumChannels), nil
}

// ValidateWAV validates a WAV file format without decoding the audio data
func ValidateWAV(data []byte) error {
	if len(data) < 44 {
		return fmt.Errorf("WAV data too short: need at least 44 bytes, got %d", len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if string(data[36:40]) != "data" {
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}

	return nil
}

// GetWAVDuration calculates the duration of a WAV file in seconds
func GetWAVDuration(data []byte) (float64, error) {
	if err := ValidateWAV(data); err != nil {
		return 0, err
	}

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	if sampleRate == 0 {
		return 0, fmt.Errorf("invalid sample rate: 0")
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels == 0 {
		return 0, fmt.Errorf("invalid channel count: 0")
	}

	dataSize := binary.LittleEndian.Uint32(data[40:44])

	numFrames := dataSize / 2 / uint32(channels)
	duration := float64(numFrames) / float64(sampleRate)

	return duration, nil
}

// WriteWAVFile encodes PCM-16 bytes and writes them to path
func WriteWAVFile(path string, pcm []byte, sampleRate, channels int) error {
	data, err := EncodeWAV(pcm, sampleRate, channels)
	if err != nil {
		return fmt.Errorf("failed to encode WAV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write WAV file %s: %w", path, err)
	}

	return nil
}
