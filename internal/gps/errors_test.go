package gps

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type labeledErr struct{}

func (labeledErr) Error() string  { return "labeled" }
func (labeledErr) Reason() string { return "custom_label" }

func TestReason(t *testing.T) {
	wrapped := &RejectError{Order: 9, Field: "utc-time", Err: fmt.Errorf("%w: %q", ErrMalformedTime, "12x")}
	assert.Equal(t, "malformed_time", Reason(wrapped))
	assert.Equal(t, "frame 9: field utc-time: malformed time: \"12x\"", wrapped.Error())

	assert.Equal(t, "checksum_mismatch", Reason(&RejectError{Order: 1, Err: ErrChecksumMismatch}))
	assert.Equal(t, "frame 1: checksum mismatch", (&RejectError{Order: 1, Err: ErrChecksumMismatch}).Error())

	assert.Equal(t, "custom_label", Reason(fmt.Errorf("commit: %w", labeledErr{})))
	assert.Equal(t, "other", Reason(errors.New("disk full")))
	assert.Equal(t, "other", Reason(nil))
}
