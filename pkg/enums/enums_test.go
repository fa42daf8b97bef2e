package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusRankFollowsLifecycle(t *testing.T) {
	chain := []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
	}
	for i := 1; i < len(chain); i++ {
		assert.Greater(t, chain[i].Rank(), chain[i-1].Rank(), "%s should rank after %s", chain[i], chain[i-1])
	}
	assert.Equal(t, -1, OrderStatusCancelled.Rank())
	assert.Equal(t, -1, OrderStatus("lost").Rank())
}

func TestOrderStatusHelpers(t *testing.T) {
	assert.True(t, OrderStatusPending.CustomerCancellable())
	assert.True(t, OrderStatusConfirmed.CustomerCancellable())
	assert.False(t, OrderStatusProcessing.CustomerCancellable())
	assert.False(t, OrderStatusShipped.CustomerCancellable())

	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())

	_, err := ParseOrderStatus("completed")
	require.Error(t, err)
	got, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, got)
}

func TestParsePaymentMethodDefaultsToTransfer(t *testing.T) {
	got, err := ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodTransfer, got)

	got, err = ParsePaymentMethod("pago_movil")
	require.NoError(t, err)
	assert.Equal(t, "Pago Movil", got.Label())

	_, err = ParsePaymentMethod("cheque")
	require.Error(t, err)
}

func TestShippingParsers(t *testing.T) {
	st, err := ParseShippingType("")
	require.NoError(t, err)
	assert.Equal(t, ShippingType(""), st)

	_, err = ParseShippingType("teleport")
	require.Error(t, err)

	agency, err := ParseShippingAgency("")
	require.NoError(t, err)
	assert.Equal(t, ShippingAgencyNone, agency)

	agency, err = ParseShippingAgency("zoom")
	require.NoError(t, err)
	assert.True(t, agency.IsValid())
}
