package metronome

import (
	"math"
	"sync"
	"time"
)

const (
	tapWindow = 5
	tapReset  = 2 * time.Second
)

// TapTempo estimates a tempo from the spacing of the last few taps.
type TapTempo struct {
	mu   sync.Mutex
	taps []time.Time
}

// Tap records a tap at now. It returns the averaged tempo once two taps
// are known and the result lies within [MinTempo, MaxTempo]. A gap longer
// than two seconds starts a new series.
func (t *TapTempo) Tap(now time.Time) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.taps); n > 0 && now.Sub(t.taps[n-1]) > tapReset {
		t.taps = t.taps[:0]
	}
	t.taps = append(t.taps, now)
	if len(t.taps) > tapWindow {
		t.taps = t.taps[len(t.taps)-tapWindow:]
	}
	if len(t.taps) < 2 {
		return 0, false
	}
	avg := t.taps[len(t.taps)-1].Sub(t.taps[0]) / time.Duration(len(t.taps)-1)
	if avg <= 0 {
		return 0, false
	}
	bpm := int(math.Round(float64(time.Minute) / float64(avg)))
	if bpm < MinTempo || bpm > MaxTempo {
		return 0, false
	}
	return bpm, true
}

func (t *TapTempo) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.taps = nil
}
