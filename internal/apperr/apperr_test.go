package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("recording sale: %w", InsufficientStock(6, 10))

	assert.Equal(t, KindInsufficientStock, KindOf(err))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, 6, e.Available)
	assert.Contains(t, e.Message, "available 6")
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestFromStore(t *testing.T) {
	assert.Nil(t, FromStore(nil, "inventory record"))

	nf := FromStore(gorm.ErrRecordNotFound, "inventory record")
	assert.True(t, Is(nf, KindNotFound))
	assert.Equal(t, "not_found: inventory record not found", nf.Error())

	dup := FromStore(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), "inventory record")
	assert.True(t, Is(dup, KindConflict))

	other := FromStore(errors.New("connection reset"), "inventory record")
	assert.True(t, Is(other, KindInternal))
	assert.ErrorContains(t, other, "connection reset")

	already := Validation("bad")
	assert.Same(t, already, FromStore(already, "x"))
}
