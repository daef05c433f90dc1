package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"navsim/internal/geo"
)

// ReadStats summarizes one pass over an NMEA log.
type ReadStats struct {
	Lines     int
	Decoded   int
	Skipped   int
	LastError string
}

// ReadFixes decodes every "$" line of r in order. Lines that fail to decode
// are counted and skipped; only read errors and ctx cancellation abort.
func ReadFixes(ctx context.Context, r io.Reader, d *Decoder) ([]Fix, ReadStats, error) {
	if d == nil {
		d = NewDecoder(ChecksumIgnore)
	}
	var stats ReadStats
	var fixes []Fix

	sc := bufio.NewScanner(r)
	// NMEA sentences are typically < 82 chars, but logs may carry longer
	// proprietary chatter.
	sc.Buffer(make([]byte, 0, 4096), 256*1024)

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return fixes, stats, ctx.Err()
		default:
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		stats.Lines++
		// Some receivers include non-NMEA chatter; filter quickly.
		if !strings.HasPrefix(line, "$") {
			stats.Skipped++
			continue
		}

		fix, err := d.Decode(line)
		if err != nil {
			stats.Skipped++
			stats.LastError = err.Error()
			log.WithError(err).WithField("line", stats.Lines).Debug("nmea: skipped sentence")
			continue
		}
		stats.Decoded++
		fixes = append(fixes, fix)
	}
	if err := sc.Err(); err != nil {
		return fixes, stats, fmt.Errorf("read nmea: %w", err)
	}
	return fixes, stats, nil
}

// ReadFile opens path and decodes it with ReadFixes.
func ReadFile(ctx context.Context, path string, d *Decoder) ([]Fix, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("open nmea log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	fixes, stats, err := ReadFixes(ctx, f, d)
	if err == nil {
		log.WithFields(log.Fields{
			"path":    path,
			"lines":   stats.Lines,
			"decoded": stats.Decoded,
			"skipped": stats.Skipped,
		}).Info("nmea log loaded")
	}
	return fixes, stats, err
}

// FirstPosition returns the first fix with a valid position.
func FirstPosition(fixes []Fix) (geo.Point, bool) {
	for _, f := range fixes {
		if f.PositionValid {
			return f.Position(), true
		}
	}
	return geo.Point{}, false
}

// FarthestPosition returns the valid position farthest from origin, which a
// simulated drive uses as its target.
func FarthestPosition(fixes []Fix, origin geo.Point) (geo.Point, bool) {
	var best geo.Point
	bestDist := -1.0
	for _, f := range fixes {
		if !f.PositionValid {
			continue
		}
		if d := geo.Distance(origin, f.Position()); d > bestDist {
			bestDist = d
			best = f.Position()
		}
	}
	return best, bestDist >= 0
}
