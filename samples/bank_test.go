package samples_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/beatr/beatr"
	"github.com/beatr/beatr/samples"
)

func TestEmptyBankUnknownVoice(t *testing.T) {
	b := samples.NewBank()
	if _, err := b.Get(beatr.Kick); !errors.Is(err, beatr.ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
	if _, err := b.Get(beatr.VoiceID(beatr.NumVoices)); !errors.Is(err, beatr.ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice for an out of range id, got %v", err)
	}
	if s := b.Load(beatr.VoiceID(255)); s != nil {
		t.Fatal("Load of an out of range id should return nil")
	}
}

func TestDefaultBankHasEveryVoice(t *testing.T) {
	b := samples.NewDefaultBank(44100)
	if got := len(b.Voices()); got != beatr.NumVoices {
		t.Fatalf("bank has %d voices, expected %d", got, beatr.NumVoices)
	}
	for i := 0; i < beatr.NumVoices; i++ {
		s, err := b.Get(beatr.VoiceID(i))
		if err != nil {
			t.Fatalf("Get(%v) failed: %v", beatr.VoiceID(i), err)
		}
		if s.SampleRate != 44100 {
			t.Fatalf("%v: sample rate %d", beatr.VoiceID(i), s.SampleRate)
		}
	}
}

func TestReplaceSwapsHandle(t *testing.T) {
	b := samples.NewDefaultBank(44100)
	old := b.Load(beatr.Snare)
	oldData := append([]float32(nil), old.Data...)
	repl := &samples.Sample{Data: []float32{1, 0.5}, SampleRate: 44100}
	prev, err := b.Replace(beatr.Snare, repl)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if prev != old {
		t.Fatal("Replace should return the previous sample")
	}
	if b.Load(beatr.Snare) != repl {
		t.Fatal("Load does not return the replacement")
	}
	for i, v := range old.Data {
		if v != oldData[i] {
			t.Fatal("the previous sample was modified")
		}
	}
	if _, err := b.Remove(beatr.Snare); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := b.Get(beatr.Snare); !errors.Is(err, beatr.ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice after Remove, got %v", err)
	}
}

func TestConcurrentReplaceAndLoad(t *testing.T) {
	b := samples.NewBank()
	a := &samples.Sample{Data: []float32{1, 1, 1}, SampleRate: 48000}
	c := &samples.Sample{Data: []float32{-1, -1}, SampleRate: 48000}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				b.Replace(beatr.Kick, a)
			} else {
				b.Replace(beatr.Kick, c)
			}
		}
	}()
	for i := 0; i < 100000; i++ {
		s := b.Load(beatr.Kick)
		if s == nil {
			continue
		}
		first := s.Data[0]
		for _, v := range s.Data {
			if v != first {
				t.Fatalf("observed a mixed buffer %v", s.Data)
			}
		}
	}
	close(stop)
	wg.Wait()
}

func TestRetune(t *testing.T) {
	b := samples.NewDefaultBank(44100)
	kick := b.Load(beatr.Kick)
	b.Retune(48000)
	got := b.Load(beatr.Kick)
	if got.SampleRate != 48000 {
		t.Fatalf("sample rate after Retune: %d", got.SampleRate)
	}
	want := kick.Len() * 48000 / 44100
	if d := got.Len() - want; d < -1 || d > 1 {
		t.Fatalf("retuned length %d, expected about %d", got.Len(), want)
	}
}
