package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("session: skip order=%d", 4)
	assert.Equal(t, []string{"session: skip order=4"}, got)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted %s", "line") })
	assert.Len(t, got, 1, "no-op logger must not reach the previous logger")
}

func TestLogf_Default(t *testing.T) {
	assert.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}
