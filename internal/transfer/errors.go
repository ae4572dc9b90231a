package transfer

import (
	"fmt"

	apperrors "github.com/askwhyharsh/fogofearth/pkg/errors"
)

// RejectedError reports a scan that is neither a valid chunk nor a legacy
// point array.
type RejectedError struct {
	Scan   string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transfer chunk rejected: %s", e.Reason)
}

func (e *RejectedError) Unwrap() error {
	return apperrors.ErrTransferRejected
}

const maxScanEcho = 32

func reject(scan, reason string) *RejectedError {
	if len(scan) > maxScanEcho {
		scan = scan[:maxScanEcho]
	}
	return &RejectedError{Scan: scan, Reason: reason}
}
