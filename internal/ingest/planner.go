// Package ingest pulls telemetry from the vendor cloud into the local store.
// It plans date-range chunks within the vendor's request window, maps vendor
// records into storage rows, and drives the repositories one chunk at a time.
package ingest

import (
	"errors"
	"math"
	"time"
)

// DefaultChunkDays is the vendor's per-request history window.
const DefaultChunkDays = 30

// Chunk is one inclusive sub-range of a backfill.
type Chunk struct {
	Start time.Time
	End   time.Time
}

// ChunkIterator yields contiguous, non-overlapping chunks covering
// [start, end] inclusive, left to right. Chunks are produced on demand so a
// caller that persists progress per chunk can resume at the first
// unprocessed one.
type ChunkIterator struct {
	next   time.Time
	end    time.Time
	window int
}

// PlanChunks builds an iterator over [start, end] with chunks of at most
// window days. start after end yields an empty iterator, not an error.
func PlanChunks(start, end time.Time, window int) (*ChunkIterator, error) {
	if window < 1 {
		return nil, errors.New("ingest: chunk window must be at least one day")
	}
	return &ChunkIterator{
		next:   truncateDay(start),
		end:    truncateDay(end),
		window: window,
	}, nil
}

// Next returns the next chunk, or false when the range is exhausted.
func (it *ChunkIterator) Next() (Chunk, bool) {
	if it == nil || it.next.After(it.end) {
		return Chunk{}, false
	}
	chunkEnd := it.next.AddDate(0, 0, it.window-1)
	if chunkEnd.After(it.end) {
		chunkEnd = it.end
	}
	c := Chunk{Start: it.next, End: chunkEnd}
	it.next = chunkEnd.AddDate(0, 0, 1)
	return c, true
}

// Days returns the inclusive length of the chunk in days. Rounding absorbs
// DST transitions inside the chunk.
func (c Chunk) Days() int {
	return int(math.Round(c.End.Sub(c.Start).Hours()/24)) + 1
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
