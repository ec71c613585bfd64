package updater

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const progressInterval = 200 * time.Millisecond

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders n with 1024-based units and at most two decimals.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + byteUnits[i]
}

// FormatETA renders d as mm:ss.
func FormatETA(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// progress derives speed and ETA for one download attempt.
type progress struct {
	start    time.Time
	lastEmit time.Time
	received int64
}

type progressSample struct {
	Percent    float64
	Speed      float64 // bytes per second
	ETA        time.Duration
	Received   int64
	Total      int64
	ShouldEmit bool
}

func (p *progress) reset(now time.Time) {
	p.start = now
	p.lastEmit = time.Time{}
	p.received = 0
}

// sample records received bytes. ShouldEmit is false when the last emitted sample
// is younger than progressInterval, except for the final chunk.
func (p *progress) sample(now time.Time, received, total int64) progressSample {
	p.received = received
	s := progressSample{Received: received, Total: total}

	if elapsed := now.Sub(p.start).Seconds(); elapsed > 0 {
		s.Speed = float64(received) / elapsed
	}
	if total > 0 {
		s.Percent = float64(received) / float64(total) * 100
		if s.Speed > 0 {
			s.ETA = time.Duration(float64(total-received) / s.Speed * float64(time.Second))
		}
	}

	final := total > 0 && received >= total
	if final || p.lastEmit.IsZero() || now.Sub(p.lastEmit) >= progressInterval {
		s.ShouldEmit = true
		p.lastEmit = now
	}
	return s
}
