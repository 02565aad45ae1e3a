package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		name string
	}{
		{CodeSuccess, "SUCCESS"},
		{CodeWrongDim, "WRONG_DIM"},
		{CodeNaN, "NAN"},
		{CodeInitRequired, "INIT_REQUIRED"},
		{Code(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.code.String())
		})
	}
}

func TestESentinelMatching(t *testing.T) {
	err := E(CodeWrongDim, "compact", "New")

	assert.True(t, Is(err, ErrWrongDim))
	assert.True(t, stderrors.Is(err, ErrWrongDim))
	assert.False(t, Is(err, ErrNaN))
	assert.Equal(t, CodeWrongDim, CodeOf(err))
	assert.Equal(t, CodeWrongDim, err.Code())
	assert.Equal(t, "compact.New: operands have incompatible dimensions", err.Error())
	assert.NotEmpty(t, err.StackTrace())

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, CodeWrongDim, CodeOf(wrapped))

	var target *Error
	require.True(t, As(wrapped, &target))
	assert.Equal(t, "New", target.Operation)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeSuccess, CodeOf(nil))
	assert.Equal(t, CodeUnknown, CodeOf(stderrors.New("plain")))
	assert.Equal(t, CodeOutOfBounds, CodeOf(ErrOutOfBounds))
	assert.Nil(t, Sentinel(CodeSuccess))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	base := stderrors.New("disk full")
	err := Wrap(base, "writing log").WithComponent("logging").WithOperation("SetLogFile")
	assert.Equal(t, "logging.SetLogFile: writing log: disk full", err.Error())
	assert.Equal(t, base, Unwrap(err))

	err = Wrapf(base, "attempt %d", 3)
	assert.Equal(t, "attempt 3: disk full", err.Error())
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	err := E(CodeInvalidParams, "compact", "SetDirection").WithMessage("axis 1 missing").Log(logger)
	require.NotNil(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "INVALID_PARAMS", fields["code"])
	assert.Equal(t, "SetDirection", fields["op"])
	assert.Equal(t, "compact", fields["component"])
	assert.Equal(t, "axis 1 missing", fields["detail"])

	// nil logger is tolerated
	assert.NotNil(t, E(CodeUnknown, "x", "y").Log(nil))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(nil))
	assert.Equal(t, http.StatusNotFound, StatusFor(ErrElemNotFound))
	assert.Equal(t, http.StatusBadRequest, StatusFor(E(CodeWrongDim, "a", "b")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(stderrors.New("boom")))
}

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Error(msg string, _ ...map[string]interface{}) {
	l.messages = append(l.messages, msg)
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := &recordingLogger{}
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, []string{"Recovered from panic"}, logger.messages)
}

func TestErrorHandler(t *testing.T) {
	logger := &recordingLogger{}
	handler := ErrorHandler(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Len(t, logger.messages, 1)
}
