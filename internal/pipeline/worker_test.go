package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yagizdas/voiceflare/internal/audio"
	"github.com/yagizdas/voiceflare/internal/config"
	"github.com/yagizdas/voiceflare/internal/metrics"
)

// Prometheus collectors register globally, so the package shares one set
var testMetrics = metrics.NewMetrics()

type sttResult struct {
	text string
	err  error
}

type fakeSTT struct {
	mu      sync.Mutex
	results []sttResult
	calls   int
}

func (f *fakeSTT) Transcribe(ctx context.Context, wavData []byte, clipID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.results) {
		return "", fmt.Errorf("unexpected transcription call %d", f.calls)
	}
	r := f.results[f.calls]
	f.calls++
	return r.text, r.err
}

type fakeResponder struct {
	mu       sync.Mutex
	calls    int
	lastArgs [4]string
	err      error
}

func (f *fakeResponder) Generate(ctx context.Context, speakerName, targetName, phrase, victimName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastArgs = [4]string{speakerName, targetName, phrase, victimName}
	if f.err != nil {
		return "", f.err
	}
	return "a witty response", nil
}

func (f *fakeResponder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSynth struct {
	dir   string
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls++
	path := filepath.Join(f.dir, fmt.Sprintf("synth-%d.wav", f.calls))
	if err := os.WriteFile(path, make([]byte, 2000), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func workerConfig() *config.Config {
	return &config.Config{
		Audio: config.AudioConfig{
			SampleRate:       48000,
			TargetSampleRate: 16000,
		},
		Triggers: config.TriggersConfig{
			Phrases: []string{"hey bot"},
			Victims: map[string]string{"hey bot": "Victor"},
		},
		Users: map[string]config.UserProfile{
			"100": {Name: "Alice", TargetName: "Bob", FriendlyFireGroup: "team-a"},
			"200": {Name: "Carol"},
		},
		Groups: map[string][]string{
			"team-a": {"hey bot"},
		},
	}
}

func testClip(speakerID string) ClipJob {
	return ClipJob{
		ID:        "clip-1",
		SessionID: "sess-1",
		SpeakerID: speakerID,
		PCM:       make([]byte, 4800),
		Channels:  1,
	}
}

func runWorker(t *testing.T, w *TranscribeWorker) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not stop")
		}
	}
}

func popWithTimeout(t *testing.T, q *Queue[PlaybackItem], d time.Duration) (PlaybackItem, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	item, err := q.Pop(ctx)
	if err != nil {
		return PlaybackItem{}, false
	}
	return item, true
}

func TestTranscribeWorkerHappyPath(t *testing.T) {
	in := NewQueue[ClipJob]()
	out := NewQueue[PlaybackItem]()
	stt := &fakeSTT{results: []sttResult{{text: "well, hey bot!"}}}
	responder := &fakeResponder{}
	synth := &fakeSynth{dir: t.TempDir()}

	w := NewTranscribeWorker(in, out, workerConfig(), stt, responder, synth, testMetrics, slog.Default())
	stop := runWorker(t, w)
	defer stop()

	in.Push(testClip("200")) // Carol, no friendly fire group

	item, ok := popWithTimeout(t, out, 5*time.Second)
	if !ok {
		t.Fatal("Expected a playback item")
	}

	if item.SessionID != "sess-1" {
		t.Errorf("Expected session sess-1, got %s", item.SessionID)
	}

	if _, err := os.Stat(item.Path); err != nil {
		t.Errorf("Expected synthesized file to exist: %v", err)
	}

	responder.mu.Lock()
	got := responder.lastArgs
	responder.mu.Unlock()
	if got[0] != "Carol" || got[2] != "hey bot" || got[3] != "Victor" {
		t.Errorf("Responder got unexpected args: %v", got)
	}
}

func TestTranscribeWorkerFriendlyFireSuppressed(t *testing.T) {
	in := NewQueue[ClipJob]()
	out := NewQueue[PlaybackItem]()
	stt := &fakeSTT{results: []sttResult{{text: "hey bot"}}}
	responder := &fakeResponder{}
	synth := &fakeSynth{dir: t.TempDir()}

	w := NewTranscribeWorker(in, out, workerConfig(), stt, responder, synth, testMetrics, slog.Default())
	stop := runWorker(t, w)
	defer stop()

	in.Push(testClip("100")) // Alice's group contains "hey bot"

	if _, ok := popWithTimeout(t, out, time.Second); ok {
		t.Errorf("Expected no playback item for friendly fire")
	}

	if responder.callCount() != 0 {
		t.Errorf("Expected responder not to be called, got %d calls", responder.callCount())
	}
}

func TestTranscribeWorkerUnknownSpeakerDiscarded(t *testing.T) {
	in := NewQueue[ClipJob]()
	out := NewQueue[PlaybackItem]()
	stt := &fakeSTT{results: []sttResult{{text: "hey bot"}}}
	responder := &fakeResponder{}
	synth := &fakeSynth{dir: t.TempDir()}

	w := NewTranscribeWorker(in, out, workerConfig(), stt, responder, synth, testMetrics, slog.Default())
	stop := runWorker(t, w)
	defer stop()

	in.Push(testClip("999"))

	if _, ok := popWithTimeout(t, out, time.Second); ok {
		t.Errorf("Expected no playback item for unknown speaker")
	}
}

func TestTranscribeWorkerFillerRejected(t *testing.T) {
	in := NewQueue[ClipJob]()
	out := NewQueue[PlaybackItem]()
	stt := &fakeSTT{results: []sttResult{{text: "Hmm."}}}
	responder := &fakeResponder{}
	synth := &fakeSynth{dir: t.TempDir()}

	w := NewTranscribeWorker(in, out, workerConfig(), stt, responder, synth, testMetrics, slog.Default())
	stop := runWorker(t, w)
	defer stop()

	in.Push(testClip("200"))

	if _, ok := popWithTimeout(t, out, time.Second); ok {
		t.Errorf("Expected no playback item for filler transcript")
	}
}

func TestTranscribeWorkerSkipsUndersizedClip(t *testing.T) {
	in := NewQueue[ClipJob]()
	out := NewQueue[PlaybackItem]()
	stt := &fakeSTT{} // any call would error
	responder := &fakeResponder{}
	synth := &fakeSynth{dir: t.TempDir()}

	w := NewTranscribeWorker(in, out, workerConfig(), stt, responder, synth, testMetrics, slog.Default())
	stop := runWorker(t, w)
	defer stop()

	job := testClip("200")
	job.PCM = make([]byte, 50)
	in.Push(job)

	if _, ok := popWithTimeout(t, out, 500*time.Millisecond); ok {
		t.Errorf("Expected no playback item for undersized clip")
	}
}

func TestTranscribeWorkerSurvivesJobErrors(t *testing.T) {
	in := NewQueue[ClipJob]()
	out := NewQueue[PlaybackItem]()
	stt := &fakeSTT{results: []sttResult{
		{err: fmt.Errorf("stt unavailable")},
		{text: "hey bot"},
	}}
	responder := &fakeResponder{}
	synth := &fakeSynth{dir: t.TempDir()}

	w := NewTranscribeWorker(in, out, workerConfig(), stt, responder, synth, testMetrics, slog.Default())
	stop := runWorker(t, w)
	defer stop()

	in.Push(testClip("200"))
	in.Push(testClip("200"))

	if _, ok := popWithTimeout(t, out, 5*time.Second); !ok {
		t.Fatal("Expected the second job to succeed after the first failed")
	}
}

type fakeLink struct {
	mu      sync.Mutex
	busy    int // number of Playing polls that report busy
	playing bool
	played  []string
}

func (l *fakeLink) Playing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy > 0 {
		l.busy--
		return true
	}
	return l.playing
}

func (l *fakeLink) Play(ctx context.Context, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.playing {
		return fmt.Errorf("overlapping playback")
	}
	l.played = append(l.played, path)
	return nil
}

type fakeResolver struct {
	links map[string]*fakeLink
}

func (r *fakeResolver) Link(sessionID string) (VoiceLink, bool) {
	l, ok := r.links[sessionID]
	return l, ok
}

func TestPlaybackWorkerPlaysAndCleansUp(t *testing.T) {
	in := NewQueue[PlaybackItem]()
	link := &fakeLink{}
	resolver := &fakeResolver{links: map[string]*fakeLink{"sess-1": link}}

	w := NewPlaybackWorker(in, resolver, testMetrics, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(t.TempDir(), "response.wav")
	if err := audio.WriteWAVFile(path, make([]byte, 1000), 48000, 1); err != nil {
		t.Fatalf("Failed to write test WAV: %v", err)
	}

	in.Push(PlaybackItem{SessionID: "sess-1", Path: path})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		link.mu.Lock()
		played := len(link.played)
		link.mu.Unlock()
		if played == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	link.mu.Lock()
	if len(link.played) != 1 || link.played[0] != path {
		t.Errorf("Expected one playback of %s, got %v", path, link.played)
	}
	link.mu.Unlock()

	// File removal happens right after playback
	removed := false
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			removed = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !removed {
		t.Errorf("Expected synthesized file to be removed after playback")
	}
}

func TestPlaybackWorkerWaitsForIdleLink(t *testing.T) {
	in := NewQueue[PlaybackItem]()
	link := &fakeLink{busy: 3} // busy for the first three polls
	resolver := &fakeResolver{links: map[string]*fakeLink{"sess-1": link}}

	w := NewPlaybackWorker(in, resolver, testMetrics, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(t.TempDir(), "response.wav")
	if err := audio.WriteWAVFile(path, make([]byte, 1000), 48000, 1); err != nil {
		t.Fatalf("Failed to write test WAV: %v", err)
	}

	start := time.Now()
	in.Push(PlaybackItem{SessionID: "sess-1", Path: path})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		link.mu.Lock()
		played := len(link.played)
		link.mu.Unlock()
		if played == 1 {
			if elapsed := time.Since(start); elapsed < 250*time.Millisecond {
				t.Errorf("Expected worker to wait out the busy link, played after %v", elapsed)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Playback never happened")
}

func TestPlaybackWorkerDiscardsCorruptFile(t *testing.T) {
	in := NewQueue[PlaybackItem]()
	link := &fakeLink{}
	resolver := &fakeResolver{links: map[string]*fakeLink{"sess-1": link}}

	w := NewPlaybackWorker(in, resolver, testMetrics, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(t.TempDir(), "truncated.wav")
	os.WriteFile(path, []byte("not a wav file"), 0644)

	in.Push(PlaybackItem{SessionID: "sess-1", Path: path})

	// The file is removed without ever reaching the link
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			link.mu.Lock()
			played := len(link.played)
			link.mu.Unlock()
			if played != 0 {
				t.Errorf("Expected corrupt file never played, got %d playbacks", played)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Corrupt file was never cleaned up")
}

func TestPlaybackWorkerRemovesFileWhenLinkMissing(t *testing.T) {
	in := NewQueue[PlaybackItem]()
	resolver := &fakeResolver{links: map[string]*fakeLink{}}

	w := NewPlaybackWorker(in, resolver, testMetrics, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(t.TempDir(), "orphan.wav")
	os.WriteFile(path, make([]byte, 1000), 0644)

	in.Push(PlaybackItem{SessionID: "gone", Path: path})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Expected file removed even when session link is missing")
}
