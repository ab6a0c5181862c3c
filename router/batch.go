package router

import (
	"encoding/json"
	"strconv"
)

// Queue batch limits.
const (
	MaxBatchBytes   = 1 << 20
	MaxBatchEntries = 10
)

// BatchEntry is one message of a batch send.
type BatchEntry struct {
	ID   string `json:"Id"`
	Body string `json:"MessageBody"`
}

// Batches splits messages into contiguous batches, keeping their order. A
// batch holds at most MaxBatchEntries entries and, unless a single entry is
// larger on its own, at most MaxBatchBytes of encoded entries. Entry ids are
// the message positions.
func Batches(messages []string) [][]BatchEntry {
	var (
		batches [][]BatchEntry
		batch   []BatchEntry
		size    int
	)
	for i, msg := range messages {
		entry := BatchEntry{ID: strconv.Itoa(i), Body: msg}
		n := entrySize(entry)
		if len(batch) > 0 && (size+n > MaxBatchBytes || len(batch) == MaxBatchEntries) {
			batches = append(batches, batch)
			batch, size = nil, 0
		}
		batch = append(batch, entry)
		size += n
	}
	if len(batch) > 0 {
		batches = append(batches, batch)
	}
	return batches
}

func entrySize(e BatchEntry) int {
	b, err := json.Marshal(e)
	if err != nil {
		return len(e.ID) + len(e.Body)
	}
	return len(b)
}
