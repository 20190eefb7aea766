package service

import (
	"context"
	"testing"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	resp, err := e.products.Create(ctx, e.tenantID, dto.CreateProductRequest{
		SKU:            "HUF-VIZ-500",
		Name:           "Ásványvíz 500ml",
		UnitPrice:      decimal.NewFromInt(250),
		DefaultTaxRate: 27,
		StockQty:       decimal.NewFromInt(48),
	})
	require.NoError(t, err)
	assert.Equal(t, "HUF-VIZ-500", resp.SKU)
	assert.True(t, resp.UnitPrice.Equal(decimal.NewFromInt(250)))

	// Duplicate SKU within the tenant.
	_, err = e.products.Create(ctx, e.tenantID, dto.CreateProductRequest{
		SKU:            "HUF-VIZ-500",
		Name:           "Ásványvíz 500ml szénsavas",
		UnitPrice:      decimal.NewFromInt(260),
		DefaultTaxRate: 27,
	})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestCreateProductValidation(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	_, err := e.products.Create(ctx, e.tenantID, dto.CreateProductRequest{
		SKU: "NEG-PRICE", Name: "x", UnitPrice: decimal.NewFromInt(-1), DefaultTaxRate: 27,
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = e.products.Create(ctx, e.tenantID, dto.CreateProductRequest{
		SKU: "BAD-RATE", Name: "x", UnitPrice: decimal.NewFromInt(100), DefaultTaxRate: 19,
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestListProducts(t *testing.T) {
	e := newTestEnv()
	e.seedProduct(100, 27, 10)
	e.seedProduct(200, 5, 10)

	resp, err := e.products.List(context.Background(), e.tenantID, 1, 20)
	require.NoError(t, err)
	assert.Len(t, resp.Data, 2)
	assert.EqualValues(t, 2, resp.Total)
}
