package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericKeepsScale(t *testing.T) {
	d := decimal.RequireFromString("1234.567890123")
	n := Numeric(d)
	require.True(t, n.Valid)
	assert.True(t, Decimal(n).Equal(d))

	var scanned pgtype.Numeric
	require.NoError(t, scanned.Scan("-0.05"))
	assert.Equal(t, "-0.05", Decimal(scanned).String())
}

func TestDecimalTreatsNullAsZero(t *testing.T) {
	assert.True(t, Decimal(pgtype.Numeric{}).IsZero())
	assert.True(t, Decimal(pgtype.Numeric{NaN: true, Valid: true}).IsZero())
}
