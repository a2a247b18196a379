package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError_Constructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       *PipelineError
		errType   ErrorType
		phase     int
		operation string
		fatal     bool
	}{
		{
			name:      "missing file",
			err:       NewMissingFileError("Sales.xlsx", cause),
			errType:   ErrorTypeMissingFile,
			phase:     PhaseLoading,
			operation: "load workbook",
			fatal:     true,
		},
		{
			name:      "load",
			err:       NewLoadError("workbook has no sheets", nil),
			errType:   ErrorTypeLoad,
			phase:     PhaseLoading,
			operation: "load workbook",
			fatal:     true,
		},
		{
			name:      "transform",
			err:       NewTransformError("date conversion", "row 3: bad date", cause),
			errType:   ErrorTypeTransform,
			phase:     PhaseTransformation,
			operation: "date conversion",
			fatal:     true,
		},
		{
			name:      "storage",
			err:       NewStorageError("database write", cause),
			errType:   ErrorTypeStorage,
			phase:     PhaseSink,
			operation: "database write",
		},
		{
			name:      "export",
			err:       NewExportError("out.xlsx", cause),
			errType:   ErrorTypeExport,
			phase:     PhaseSink,
			operation: "spreadsheet export",
		},
		{
			name:      "render",
			err:       NewRenderError(cause),
			errType:   ErrorTypeRender,
			phase:     PhaseSink,
			operation: "revenue boxplot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.phase, tt.err.Phase)
			assert.Equal(t, tt.operation, tt.err.Operation)
			assert.Equal(t, tt.fatal, tt.err.Fatal())
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
			assert.Equal(t, tt.errType, GetErrorType(tt.err))
		})
	}
}

func TestPipelineError_Error(t *testing.T) {
	err := NewTransformError("column check", "missing required column(s): Revenue", nil)
	assert.Equal(t, "[transform] Phase 2 / column check: missing required column(s): Revenue", err.Error())

	withCause := NewMissingFileError("Sales.xlsx", errors.New("no such file"))
	assert.Equal(t, "[missing_file] Phase 1 / load workbook: Sales.xlsx not found: no such file", withCause.Error())

	var nilErr *PipelineError
	assert.Equal(t, "unknown pipeline error", nilErr.Error())
	assert.False(t, nilErr.Fatal())
	assert.Nil(t, nilErr.Unwrap())
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("step failed: %w", NewStorageError("database write", cause))

	assert.ErrorIs(t, err, cause)

	pErr, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeStorage, pErr.Type)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(errors.New("plain error")))
	assert.False(t, IsFatal(NewRenderError(nil)))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain error")))
}

func TestWrapError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, WrapError(nil, ErrorTypeExport, PhaseSink, "export"))
	})

	t.Run("plain error gets step context", func(t *testing.T) {
		cause := errors.New("permission denied")
		pErr := WrapError(cause, ErrorTypeExport, PhaseSink, "spreadsheet export")
		require.NotNil(t, pErr)
		assert.Equal(t, ErrorTypeExport, pErr.Type)
		assert.Equal(t, PhaseSink, pErr.Phase)
		assert.Equal(t, "spreadsheet export", pErr.Operation)
		assert.ErrorIs(t, pErr, cause)
	})

	t.Run("pipeline error kept", func(t *testing.T) {
		orig := NewStorageError("database verification", nil)
		pErr := WrapError(fmt.Errorf("wrapped: %w", orig), ErrorTypeExport, PhaseSink, "other")
		assert.Same(t, orig, pErr)
		assert.Equal(t, "database verification", pErr.Operation)
	})
}

func TestErrorList(t *testing.T) {
	var list ErrorList
	assert.False(t, list.HasErrors())
	assert.Equal(t, "no errors", list.Error())

	list.Add(nil)
	assert.False(t, list.HasErrors())

	storageErr := NewStorageError("database write", nil)
	list.Add(storageErr)
	assert.True(t, list.HasErrors())
	assert.Equal(t, storageErr.Error(), list.Error())

	list.Add(NewExportError("out.xlsx", nil))
	list.Add(NewRenderError(nil))
	assert.Equal(t, "multiple errors: 3 errors occurred", list.Error())
	assert.Equal(t, []*PipelineError{storageErr}, list.GetByType(ErrorTypeStorage))
	assert.Empty(t, list.GetByType(ErrorTypeLoad))
}
