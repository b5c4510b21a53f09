package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alertdigest/alertdigest/internal/article"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart      Stage = "RUN_START"
	StageRunDone       Stage = "RUN_DONE"
	StageArticleStatus Stage = "ARTICLE_STATUS"
)

// Event captures a single milestone of a digest run.
type Event struct {
	// RunID uniquely identifies a pipeline run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which run or article milestone occurred.
	Stage Stage
	// URL identifies the article for ARTICLE_STATUS events.
	URL string
	// Status is the state the article just entered.
	Status article.Status
	// Strategy names the fetch tier that produced content, set alongside
	// the fetched status.
	Strategy string
	// Bytes carries the fetched content size.
	Bytes int64
	// Articles is the total article count, set on RUN_START.
	Articles int64
	// Dur captures stage latency, or total run time on RUN_DONE.
	Dur time.Duration
	// Note carries low-volume context such as a failure reason or the
	// end-of-run strategy tally.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageArticleStatus:
		if e.URL == "" {
			return errors.New("article status requires url")
		}
		if e.Status == "" {
			return errors.New("article status requires status")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
