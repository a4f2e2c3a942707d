package audio

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func frag(b byte, n int) []byte {
	f := make([]byte, n)
	for i := range f {
		f[i] = b
	}
	return f
}

func TestSpeakerBufferStartsEmpty(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 10)

	pcm, _ := buf.Finalize()
	if len(pcm) != 0 {
		t.Errorf("Expected empty buffer after construction, got %d bytes", len(pcm))
	}

	if buf.DurationSeconds() != 0 {
		t.Errorf("Expected zero duration, got %f", buf.DurationSeconds())
	}
}

func TestSpeakerBufferPrerollPrependedOnce(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 10)

	// Fragments arriving before speech onset land in the preroll
	buf.AddPCM(frag(1, 4), 1)
	buf.AddPCM(frag(2, 4), 1)

	buf.StartSpeaking()
	buf.AddPCM(frag(3, 4), 1)
	buf.AddPCM(frag(4, 4), 1)

	pcm, _ := buf.Finalize()
	want := append(append(append(frag(1, 4), frag(2, 4)...), frag(3, 4)...), frag(4, 4)...)
	if !bytes.Equal(pcm, want) {
		t.Errorf("Expected preroll then speech fragments in order, got %v", pcm)
	}
}

func TestSpeakerBufferPrerollEviction(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 3)

	for i := byte(1); i <= 5; i++ {
		buf.AddPCM(frag(i, 2), 1)
	}

	buf.StartSpeaking()
	buf.AddPCM(frag(9, 2), 1)

	pcm, _ := buf.Finalize()
	want := append(append(append(frag(3, 2), frag(4, 2)...), frag(5, 2)...), frag(9, 2)...)
	if !bytes.Equal(pcm, want) {
		t.Errorf("Expected only the newest 3 preroll fragments retained, got %v", pcm)
	}
}

func TestSpeakerBufferPrerollNotPrependedTwice(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 10)

	buf.AddPCM(frag(1, 4), 1)
	buf.StartSpeaking()
	buf.AddPCM(frag(2, 4), 1)
	// Stop and resume within the same utterance
	buf.StopSpeaking()
	buf.StartSpeaking()
	buf.AddPCM(frag(3, 4), 1)

	pcm, _ := buf.Finalize()
	want := append(append(frag(1, 4), frag(2, 4)...), frag(3, 4)...)
	if !bytes.Equal(pcm, want) {
		t.Errorf("Expected preroll folded in exactly once, got %v", pcm)
	}
}

func TestSpeakerBufferDoubleFinalize(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 10)

	buf.StartSpeaking()
	buf.AddPCM(frag(1, 100), 1)

	first, _ := buf.Finalize()
	if len(first) != 100 {
		t.Errorf("Expected 100 bytes from first finalize, got %d", len(first))
	}

	second, _ := buf.Finalize()
	if len(second) != 0 {
		t.Errorf("Expected empty second finalize, got %d bytes", len(second))
	}
}

func TestSpeakerBufferClear(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 10)

	buf.AddPCM(frag(1, 4), 1)
	buf.StartSpeaking()
	buf.AddPCM(frag(2, 4), 1)
	buf.StopSpeaking()
	buf.Clear()

	if buf.DurationSeconds() != 0 {
		t.Errorf("Expected zero duration after clear, got %f", buf.DurationSeconds())
	}

	if !buf.StopTime().IsZero() {
		t.Errorf("Expected stop time reset after clear")
	}

	pcm, _ := buf.Finalize()
	if len(pcm) != 0 {
		t.Errorf("Expected empty buffer after clear, got %d bytes", len(pcm))
	}
}

func TestSpeakerBufferDuration(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 10)

	buf.StartSpeaking()
	// 1 second of mono audio at 48kHz: 96000 bytes
	buf.AddPCM(frag(0, 96000), 1)

	if got := buf.DurationSeconds(); got != 1.0 {
		t.Errorf("Expected 1.0 second, got %f", got)
	}

	// Stereo fragments count double: the measure is channel-blind
	buf.AddPCM(frag(0, 96000), 2)
	if got := buf.DurationSeconds(); got != 2.0 {
		t.Errorf("Expected 2.0 seconds with stereo counted double, got %f", got)
	}
}

func TestSpeakerBufferStopTimeLifecycle(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 10)

	if !buf.StopTime().IsZero() {
		t.Errorf("Expected zero stop time on construction")
	}

	buf.StartSpeaking()
	buf.StopSpeaking()
	if buf.StopTime().IsZero() {
		t.Errorf("Expected stop time recorded after StopSpeaking")
	}

	buf.StartSpeaking()
	if !buf.StopTime().IsZero() {
		t.Errorf("Expected stop time cleared when speaking resumes")
	}
}

func TestSpeakerBufferFinalizeReportsChannels(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 10)

	buf.StartSpeaking()
	buf.AddPCM(frag(1, 4), 1)
	buf.AddPCM(frag(2, 4), 2)

	_, channels := buf.Finalize()
	if channels != 2 {
		t.Errorf("Expected channel count of most recent fragment (2), got %d", channels)
	}
}

func TestSpeakerBufferConcurrentAccess(t *testing.T) {
	buf := NewSpeakerBuffer(48000, 10)
	buf.StartSpeaking()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf.AddPCM(frag(1, 4), 1)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			buf.GetStats()
			buf.DurationSeconds()
			time.Sleep(time.Millisecond)
		}
	}()

	wg.Wait()
	<-done

	pcm, _ := buf.Finalize()
	if len(pcm) != 8*100*4 {
		t.Errorf("Expected %d bytes after concurrent adds, got %d", 8*100*4, len(pcm))
	}
}
