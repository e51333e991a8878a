package compound

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

func fptr(v float64) *float64 { return &v }

func TestDeriveState(t *testing.T) {
	tests := []struct {
		name     string
		meltingC *float64
		boilingC *float64
		want     ctypes.PhysicalState
	}{
		{"both missing", nil, nil, ctypes.StateUnknown},
		{"melts above reference", fptr(80), nil, ctypes.StateSolid},
		{"melts above reference with boiling", fptr(80), fptr(200), ctypes.StateSolid},
		{"boils below reference", nil, fptr(10), ctypes.StateGas},
		{"boils below zero", nil, fptr(-33.3), ctypes.StateGas},
		{"melts below, boils above", fptr(-114), fptr(78), ctypes.StateLiquid},
		{"only boiling, above reference", nil, fptr(100), ctypes.StateLiquid},
		{"only melting, below reference", fptr(-95), nil, ctypes.StateLiquid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveState(tt.meltingC, tt.boilingC))
		})
	}
}

func TestDeriveState_ReferenceBoundary(t *testing.T) {
	// Comparisons against the 25 °C reference are strict: a compound melting
	// or boiling exactly at 25 °C is treated as liquid.
	assert.Equal(t, ctypes.StateLiquid, DeriveState(fptr(ReferenceTemperatureC), nil))
	assert.Equal(t, ctypes.StateLiquid, DeriveState(nil, fptr(ReferenceTemperatureC)))
}

func TestDeriveState_MeltingWinsOverBoiling(t *testing.T) {
	// A high melting point decides solid before the boiling point is looked at,
	// even when the boiling value alone would have meant gas.  Inconsistent
	// upstream data resolves in favour of the melting point.
	assert.Equal(t, ctypes.StateSolid, DeriveState(fptr(100), fptr(10)))
}
//Personal.AI order the ending
