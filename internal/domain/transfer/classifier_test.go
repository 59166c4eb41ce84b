package transfer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestClassifyItem(t *testing.T) {
	t.Run("serial-managed item produces one line per unit", func(t *testing.T) {
		c, err := ClassifyItem(ItemMasterFlags{SerialManaged: boolPtr(true)}, decimal.NewFromInt(3))

		require.NoError(t, err)
		assert.Equal(t, ItemTypeSerial, c.ItemType)
		assert.Equal(t, 3, c.LineCount)
		assert.True(t, c.ExpectedQuantity.Equal(decimal.NewFromInt(1)))
		assert.True(t, c.ScannedQuantity.IsZero())
		assert.Equal(t, CompletionStatusPending, c.CompletionStatus)
		assert.True(t, c.IsSerialManaged)
	})

	t.Run("non-serial item produces single auto-completed line", func(t *testing.T) {
		c, err := ClassifyItem(ItemMasterFlags{SerialManaged: boolPtr(false), BatchManaged: boolPtr(true)}, decimal.NewFromInt(10))

		require.NoError(t, err)
		assert.Equal(t, ItemTypeNonSerial, c.ItemType)
		assert.Equal(t, 1, c.LineCount)
		assert.True(t, c.ExpectedQuantity.Equal(decimal.NewFromInt(10)))
		assert.True(t, c.ScannedQuantity.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, CompletionStatusCompleted, c.CompletionStatus)
		assert.True(t, c.IsBatchManaged)
	})

	t.Run("batch-only flag still classifies as non-serial", func(t *testing.T) {
		c, err := ClassifyItem(ItemMasterFlags{BatchManaged: boolPtr(true)}, decimal.NewFromInt(5))

		require.NoError(t, err)
		assert.Equal(t, ItemTypeNonSerial, c.ItemType)
		assert.False(t, c.IsSerialManaged)
	})

	t.Run("fails with zero quantity", func(t *testing.T) {
		_, err := ClassifyItem(ItemMasterFlags{SerialManaged: boolPtr(true)}, decimal.Zero)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "greater than zero")
	})

	t.Run("fails with negative quantity", func(t *testing.T) {
		_, err := ClassifyItem(ItemMasterFlags{SerialManaged: boolPtr(false)}, decimal.NewFromInt(-2))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "greater than zero")
	})

	t.Run("fails when no classification flags supplied", func(t *testing.T) {
		_, err := ClassifyItem(ItemMasterFlags{}, decimal.NewFromInt(1))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Item master flags")
	})

	t.Run("fails with fractional quantity for serial item", func(t *testing.T) {
		_, err := ClassifyItem(ItemMasterFlags{SerialManaged: boolPtr(true)}, decimal.NewFromFloat(2.5))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "whole-number")
	})

	t.Run("allows fractional quantity for non-serial item", func(t *testing.T) {
		c, err := ClassifyItem(ItemMasterFlags{BatchManaged: boolPtr(false)}, decimal.NewFromFloat(2.5))

		require.NoError(t, err)
		assert.True(t, c.ExpectedQuantity.Equal(decimal.NewFromFloat(2.5)))
	})
}
