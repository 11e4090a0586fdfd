package log

import (
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel_ChangesModuleLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel(logging.WARNING) })

	SetLevel(logging.DEBUG)
	assert.Equal(t, logging.DEBUG, logging.GetLevel("objectwire"))

	SetLevel(logging.ERROR)
	assert.Equal(t, logging.ERROR, logging.GetLevel("objectwire"))
}

func TestLogger_ReturnsProcessWideLogger(t *testing.T) {
	l1 := Logger()
	l2 := Logger()
	assert.NotNil(t, l1)
	assert.Same(t, l1, l2)
}
