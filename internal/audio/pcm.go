package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// GuessChannels determines the channel count of a PCM-16 fragment. A hint of
// 1 or 2 wins; otherwise fragments whose length divides evenly into 4-byte
// stereo frames are treated as stereo, the rest as mono.
func GuessChannels(pcmLen, hint int) int {
	if hint == 1 || hint == 2 {
		return hint
	}
	if pcmLen%4 == 0 {
		return 2
	}
	return 1
}

// StereoToMono downmixes interleaved stereo PCM-16 to mono by averaging the
// left and right channels. A trailing partial frame is dropped.
func StereoToMono(pcm []byte) []byte {
	numFrames := len(pcm) / 4
	mono := make([]byte, numFrames*2)
	for i := 0; i < numFrames; i++ {
		j := i * 4
		l := int16(pcm[j]) | int16(pcm[j+1])<<8
		r := int16(pcm[j+2]) | int16(pcm[j+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		mono[i*2] = byte(m)
		mono[i*2+1] = byte(m >> 8)
	}
	return mono
}

// BytesToSamples converts little-endian PCM-16 bytes to int16 samples.
// A trailing odd byte is dropped.
func BytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts int16 samples to little-endian PCM-16 bytes
func SamplesToBytes(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}
	return pcm
}

// Resample converts mono PCM-16 from srcRate to dstRate. Input fragments
// must already be mono; use StereoToMono first.
func Resample(pcm []byte, srcRate, dstRate int) ([]byte, error) {
	if srcRate == dstRate {
		return pcm, nil
	}

	resampler, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	numSamples := len(pcm) / 2
	input := make([]float64, numSamples)
	for i := 0; i < numSamples; i++ {
		sample := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		input[i] = float64(sample) / 32768.0
	}

	output, err := resampler.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	out := make([]byte, len(output)*2)
	for i, s := range output {
		sample := int16(s * 32767.0)
		if s > 1.0 {
			sample = 32767
		} else if s < -1.0 {
			sample = -32768
		}
		out[i*2] = byte(sample)
		out[i*2+1] = byte(sample >> 8)
	}

	return out, nil
}

// PrepareForTranscription downmixes a finalized clip to mono and resamples
// it from the capture rate to the transcription rate.
func PrepareForTranscription(pcm []byte, channels, srcRate, dstRate int) ([]byte, error) {
	if channels == 2 {
		pcm = StereoToMono(pcm)
	}
	return Resample(pcm, srcRate, dstRate)
}
