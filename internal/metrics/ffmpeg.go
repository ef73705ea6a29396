package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ffmpegFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "ffmpeg",
		Name:      "fps",
		Help:      "Frames per second reported by ffmpeg",
	}, []string{"slot"})

	ffmpegSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "ffmpeg",
		Name:      "processing_speed",
		Help:      "ffmpeg processing speed multiplier",
	}, []string{"slot"})

	ffmpegDroppedFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "ffmpeg",
		Name:      "dropped_frames_total",
		Help:      "Dropped frames reported by ffmpeg",
	}, []string{"slot"})

	ffmpegDuplicateFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "ffmpeg",
		Name:      "duplicate_frames_total",
		Help:      "Duplicated frames reported by ffmpeg",
	}, []string{"slot"})

	ffmpegCache   = make(map[string]FFmpegStats)
	ffmpegCacheMu sync.RWMutex
)

// FFmpegStats holds the values of one ffmpeg progress line.
type FFmpegStats struct {
	Frame           int64   `json:"frame"`
	FPS             float64 `json:"fps"`
	Speed           float64 `json:"speed"`
	DroppedFrames   int64   `json:"dropped_frames"`
	DuplicateFrames int64   `json:"duplicate_frames"`
}

// ParseFFmpegStats parses an ffmpeg progress line such as
// "frame=  120 fps= 12 q=-1.0 size=  1024kB time=00:00:10.00 bitrate= 838.9kbits/s dup=0 drop=2 speed=1.01x".
// Returns false for any other line.
func ParseFFmpegStats(line string) (FFmpegStats, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "frame=") {
		return FFmpegStats{}, false
	}

	// Normalize "key=  value" into "key=value" before splitting into fields.
	for strings.Contains(line, "= ") {
		line = strings.ReplaceAll(line, "= ", "=")
	}

	var stats FFmpegStats
	for _, field := range strings.Fields(line) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "frame":
			stats.Frame, _ = strconv.ParseInt(value, 10, 64)
		case "fps":
			stats.FPS, _ = strconv.ParseFloat(value, 64)
		case "speed":
			stats.Speed, _ = strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64)
		case "drop":
			stats.DroppedFrames, _ = strconv.ParseInt(value, 10, 64)
		case "dup":
			stats.DuplicateFrames, _ = strconv.ParseInt(value, 10, 64)
		}
	}
	return stats, true
}

// SetFFmpegStats publishes the latest progress values for slot.
func SetFFmpegStats(slot string, stats FFmpegStats) {
	ffmpegFPS.WithLabelValues(slot).Set(stats.FPS)
	ffmpegSpeed.WithLabelValues(slot).Set(stats.Speed)
	ffmpegDroppedFrames.WithLabelValues(slot).Set(float64(stats.DroppedFrames))
	ffmpegDuplicateFrames.WithLabelValues(slot).Set(float64(stats.DuplicateFrames))

	ffmpegCacheMu.Lock()
	ffmpegCache[slot] = stats
	ffmpegCacheMu.Unlock()
}

// GetFFmpegStats returns the last progress values seen for slot.
func GetFFmpegStats(slot string) (FFmpegStats, bool) {
	ffmpegCacheMu.RLock()
	defer ffmpegCacheMu.RUnlock()
	stats, ok := ffmpegCache[slot]
	return stats, ok
}

// DeleteFFmpegStats removes all progress values for slot.
func DeleteFFmpegStats(slot string) {
	ffmpegFPS.DeleteLabelValues(slot)
	ffmpegSpeed.DeleteLabelValues(slot)
	ffmpegDroppedFrames.DeleteLabelValues(slot)
	ffmpegDuplicateFrames.DeleteLabelValues(slot)

	ffmpegCacheMu.Lock()
	delete(ffmpegCache, slot)
	ffmpegCacheMu.Unlock()
}
