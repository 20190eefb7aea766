package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "CS-2026-00042", Format(KindSession, 2026, 42))
	assert.Equal(t, "TR-2026-00317", Format(KindTransaction, 2026, 317))
}

func TestFormatWideValuesKeepOrdering(t *testing.T) {
	// Values past the padding width must still render (and remain unique).
	assert.Equal(t, "TR-2026-123456", Format(KindTransaction, 2026, 123456))
}
