package scheduler

import (
	"math"
	"sort"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// partTable is the set of part records of one upload. Every mutation and every
// progress read happens under mu; progress is emitted before the lock is released
// so observers receive snapshots in commit order.
type partTable struct {
	mu        sync.Mutex
	records   []uploadtypes.PartRecord
	completed int
	tracker   uploadtypes.ProgressTracker

	// stopped is set by the first terminal failure; no part starts afterwards
	stopped  bool
	firstErr error
}

func newPartTable(session uploadtypes.UploadSession, tracker uploadtypes.ProgressTracker) *partTable {
	records := make([]uploadtypes.PartRecord, session.PartCount)
	for i := range records {
		n := int32(i + 1)
		start, end := session.PartRange(n)
		records[i] = uploadtypes.PartRecord{
			PartNumber: n,
			Start:      start,
			End:        end,
			Status:     uploadtypes.PartStatusPending,
		}
	}
	return &partTable{records: records, tracker: tracker}
}

// begin starts an attempt of partNumber. ok is false when the upload has been
// stopped by a failure elsewhere; the part is then left pending.
func (t *partTable) begin(partNumber int32, cancelled bool) (rec uploadtypes.PartRecord, st step, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return t.records[partNumber-1], step{}, false
	}

	rec, st = begin(t.records[partNumber-1], cancelled)
	t.records[partNumber-1] = rec
	t.emit(partNumber, rec.Status)
	return rec, st, true
}

// finish applies an attempt result to partNumber.
func (t *partTable) finish(
	partNumber int32,
	res attemptResult,
	cancelled bool,
	policy retryPolicy,
) (uploadtypes.PartRecord, step) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, st := advance(t.records[partNumber-1], res, cancelled, policy)
	t.records[partNumber-1] = rec
	if rec.Status == uploadtypes.PartStatusCompleted {
		t.completed++
	}
	t.emit(partNumber, rec.Status)
	return rec, st
}

// fail records the first terminal failure and stops admission. It reports whether
// err became the upload's error.
func (t *partTable) fail(err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.firstErr != nil {
		return false
	}
	t.firstErr = err
	return true
}

// err returns the first terminal failure, if any.
func (t *partTable) err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.firstErr
}

// snapshot returns a copy of every record.
func (t *partTable) snapshot() []uploadtypes.PartRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]uploadtypes.PartRecord, len(t.records))
	copy(out, t.records)
	return out
}

// completedParts returns (partNumber, etag) pairs sorted by part number.
func (t *partTable) completedParts() []uploadtypes.CompletedPart {
	t.mu.Lock()
	defer t.mu.Unlock()

	parts := make([]uploadtypes.CompletedPart, 0, len(t.records))
	for _, rec := range t.records {
		if rec.Status == uploadtypes.PartStatusCompleted {
			parts = append(parts, uploadtypes.CompletedPart{PartNumber: rec.PartNumber, ETag: rec.ETag})
		}
	}
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].PartNumber < parts[j].PartNumber
	})
	return parts
}

// emit reports progress. Must be called with mu held.
func (t *partTable) emit(partNumber int32, status uploadtypes.PartStatus) {
	if t.tracker == nil {
		return
	}
	t.tracker.Update(uploadtypes.Progress{
		Percent:        percent(t.completed, len(t.records)),
		CompletedParts: t.completed,
		TotalParts:     len(t.records),
		PartNumber:     partNumber,
		Status:         status,
	})
}

// percent returns round(100 * completed / total).
func percent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
