package transfer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/askwhyharsh/fogofearth/internal/location"
)

type State int

const (
	StateIdle State = iota
	StateCollecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Status int

const (
	// StatusProgress means more parts are needed.
	StatusProgress Status = iota
	// StatusComplete carries the reassembled payload. An empty payload means
	// the sender had nothing to share.
	StatusComplete
	// StatusLegacy carries points from a bare JSON array scan.
	StatusLegacy
)

func (s Status) String() string {
	switch s {
	case StatusProgress:
		return "progress"
	case StatusComplete:
		return "complete"
	case StatusLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type IngestResult struct {
	Status     Status
	TransferID string
	Have       int
	Total      int
	Payload    string
	Points     []location.GeoPoint
}

// Empty reports a completed transfer that carried nothing.
func (r IngestResult) Empty() bool {
	return r.Status == StatusComplete && r.Payload == ""
}

type session struct {
	id    string
	total int
	parts map[int]string
}

// Receiver reassembles one in-flight transfer at a time. A chunk from a
// different transfer discards the current partial state.
type Receiver struct {
	mu      sync.Mutex
	current *session
}

func NewReceiver() *Receiver {
	return &Receiver{}
}

// Ingest consumes one scanned string. Rejected scans leave the receiver
// unchanged.
func (r *Receiver) Ingest(scan string) (IngestResult, error) {
	scan = strings.TrimSpace(scan)

	if isLegacyArray(scan) {
		points, err := parseLegacy(scan)
		if err != nil {
			return IngestResult{}, err
		}
		return IngestResult{Status: StatusLegacy, Points: points}, nil
	}
	if isLegacyNothingToShare(scan) {
		return IngestResult{Status: StatusComplete, TransferID: EmptyTransferID, Have: 1, Total: 1}, nil
	}

	chunk, err := ParseChunk(scan)
	if err != nil {
		return IngestResult{}, err
	}

	if chunk.IsEmpty() {
		return IngestResult{Status: StatusComplete, TransferID: EmptyTransferID, Have: 1, Total: 1}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current
	if cur != nil && cur.id == chunk.TransferID && cur.total != chunk.Total {
		return IngestResult{}, reject(scan, fmt.Sprintf("part total %d does not match transfer total %d", chunk.Total, cur.total))
	}
	if cur == nil || cur.id != chunk.TransferID {
		cur = &session{
			id:    chunk.TransferID,
			total: chunk.Total,
			parts: make(map[int]string),
		}
		r.current = cur
	}

	if _, seen := cur.parts[chunk.Index]; !seen {
		cur.parts[chunk.Index] = chunk.Data
	}

	if len(cur.parts) < cur.total {
		return IngestResult{
			Status:     StatusProgress,
			TransferID: cur.id,
			Have:       len(cur.parts),
			Total:      cur.total,
		}, nil
	}

	var b strings.Builder
	for i := 1; i <= cur.total; i++ {
		b.WriteString(cur.parts[i])
	}
	r.current = nil

	return IngestResult{
		Status:     StatusComplete,
		TransferID: cur.id,
		Have:       cur.total,
		Total:      cur.total,
		Payload:    b.String(),
	}, nil
}

func (r *Receiver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return StateIdle
	}
	return StateCollecting
}

// Progress returns the in-flight transfer, if any.
func (r *Receiver) Progress() (transferID string, have, total int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return "", 0, 0, false
	}
	return r.current.id, len(r.current.parts), r.current.total, true
}

// Reset drops any partial transfer.
func (r *Receiver) Reset() {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}
