package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vegasq/parqview/query"
	"github.com/vegasq/parqview/reader"
	"github.com/vegasq/parqview/store"
	"github.com/vegasq/parqview/table"
)

func TestError_Message(t *testing.T) {
	err := Wrap(errors.New("bad magic"), KindDecode, "Failed to read parquet")
	assert.Equal(t, "Failed to read parquet: bad magic", err.Error())
	assert.Equal(t, "File not found", New(KindNotFound, "File not found").Error())
	assert.Nil(t, Wrap(nil, KindDecode, "x"))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", New(KindValidation, "Only .parquet files are supported"), http.StatusBadRequest},
		{"missing field", New(KindMissingField, "query is required"), http.StatusUnprocessableEntity},
		{"decode sentinel", fmt.Errorf("load: %w", reader.ErrDecode), http.StatusBadRequest},
		{"not found sentinel", fmt.Errorf("%w: x.parquet", reader.ErrNotFound), http.StatusNotFound},
		{"no dataset", store.ErrNoDataset, http.StatusBadRequest},
		{"query", fmt.Errorf("%w: no such column: z", query.ErrQuery), http.StatusBadRequest},
		{"unknown column", fmt.Errorf("select: %w", table.ErrUnknownColumn), http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusBadRequest},
		{"kind wins over cause", Wrap(reader.ErrNotFound, KindValidation, "bad"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(KindState, "no dataset loaded"))
	assert.True(t, Is(err, KindState))
	assert.False(t, Is(err, KindQuery))
	assert.False(t, Is(nil, KindInternal))
}

func TestDetail(t *testing.T) {
	err := fmt.Errorf("upload: %w", Wrap(errors.New("magic"), KindDecode, "Failed to read parquet: magic"))
	assert.Equal(t, "Failed to read parquet: magic", Detail(err))
	assert.Equal(t, "no dataset loaded", Detail(store.ErrNoDataset))
}
