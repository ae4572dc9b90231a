// Package transfer moves an encoded payload through a channel with a strict
// per-message size limit, such as a sequence of QR codes.
package transfer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Prefix starts every chunk label.
	Prefix = "FOG2"

	// EmptyTransferID marks the single chunk sent when there is nothing to share.
	EmptyTransferID = "EMPTY"

	DefaultMaxPartLength = 600

	// MaxParts caps the part count of one transfer. Totals above it are
	// rejected before any state is allocated.
	MaxParts = 4096

	separator = "|"
)

// Chunk is one labeled part of a transfer. Index is 1-based.
type Chunk struct {
	TransferID string
	Index      int
	Total      int
	Data       string
}

// EmptyChunk returns the "nothing to share" sentinel.
func EmptyChunk() Chunk {
	return Chunk{TransferID: EmptyTransferID, Index: 1, Total: 1}
}

// IsEmpty reports whether c is the "nothing to share" sentinel.
func (c Chunk) IsEmpty() bool {
	return c.TransferID == EmptyTransferID && c.Index == 1 && c.Total == 1
}

// String renders the wire form FOG2|<id>|<index>/<total>|<data>.
func (c Chunk) String() string {
	var b strings.Builder
	b.Grow(len(Prefix) + len(c.TransferID) + len(c.Data) + 16)
	b.WriteString(Prefix)
	b.WriteString(separator)
	b.WriteString(c.TransferID)
	b.WriteString(separator)
	b.WriteString(strconv.Itoa(c.Index))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(c.Total))
	b.WriteString(separator)
	b.WriteString(c.Data)
	return b.String()
}

// Split cuts payload into ceil(len/maxPartLen) chunks labeled with
// transferID. An empty payload yields the single sentinel chunk. The payload
// is split by byte, which is safe for the ASCII polyline alphabet.
func Split(payload string, maxPartLen int, transferID string) ([]Chunk, error) {
	if maxPartLen < 1 {
		return nil, fmt.Errorf("max part length must be at least 1, got %d", maxPartLen)
	}
	if payload == "" {
		return []Chunk{EmptyChunk()}, nil
	}
	if err := validateTransferID(transferID); err != nil {
		return nil, err
	}

	total := (len(payload) + maxPartLen - 1) / maxPartLen
	if total > MaxParts {
		return nil, fmt.Errorf("payload needs %d parts, more than the %d allowed", total, MaxParts)
	}
	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		start := i * maxPartLen
		end := start + maxPartLen
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, Chunk{
			TransferID: transferID,
			Index:      i + 1,
			Total:      total,
			Data:       payload[start:end],
		})
	}
	return chunks, nil
}

// SplitNow splits payload under a transfer id derived from the current time.
func SplitNow(payload string, maxPartLen int) ([]Chunk, error) {
	return Split(payload, maxPartLen, NewTransferID(time.Now()))
}

// NewTransferID formats t as base-36 milliseconds.
func NewTransferID(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 36)
}

func validateTransferID(id string) error {
	if id == "" {
		return fmt.Errorf("transfer id must not be empty")
	}
	if strings.Contains(id, separator) {
		return fmt.Errorf("transfer id %q must not contain %q", id, separator)
	}
	if id == EmptyTransferID {
		return fmt.Errorf("transfer id %q is reserved", id)
	}
	return nil
}

// ParseChunk parses the wire form. Data may itself contain the separator.
func ParseChunk(s string) (Chunk, error) {
	fields := strings.SplitN(s, separator, 4)
	if len(fields) != 4 || fields[0] != Prefix {
		return Chunk{}, reject(s, "missing FOG2 label")
	}

	id := fields[1]
	if id == "" {
		return Chunk{}, reject(s, "empty transfer id")
	}

	indexStr, totalStr, ok := strings.Cut(fields[2], "/")
	if !ok {
		return Chunk{}, reject(s, "part label is not index/total")
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		return Chunk{}, reject(s, "unparsable part index")
	}
	total, err := strconv.Atoi(totalStr)
	if err != nil {
		return Chunk{}, reject(s, "unparsable part total")
	}
	if total < 1 {
		return Chunk{}, reject(s, "part total must be positive")
	}
	if total > MaxParts {
		return Chunk{}, reject(s, fmt.Sprintf("part total %d exceeds %d", total, MaxParts))
	}
	if index < 1 || index > total {
		return Chunk{}, reject(s, fmt.Sprintf("part index %d outside 1..%d", index, total))
	}

	c := Chunk{TransferID: id, Index: index, Total: total, Data: fields[3]}
	if id == EmptyTransferID && !c.IsEmpty() {
		return Chunk{}, reject(s, "malformed empty transfer")
	}
	return c, nil
}
