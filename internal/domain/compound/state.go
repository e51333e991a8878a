package compound

import (
	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// ReferenceTemperatureC is the reference temperature against which melting
// and boiling points are compared when deriving a compound's physical state.
const ReferenceTemperatureC = 25.0

// DeriveState determines the physical state at the reference temperature
// from the melting and boiling points in Celsius, either of which may be nil:
//
//   - both bounds missing → StateUnknown (recorded explicitly, never guessed)
//   - melting point above reference → StateSolid
//   - boiling point below reference → StateGas
//   - otherwise → StateLiquid
//
// A compound melting exactly at the reference temperature is treated as
// liquid, matching the strict comparisons above.
func DeriveState(meltingC, boilingC *float64) ctypes.PhysicalState {
	if meltingC == nil && boilingC == nil {
		return ctypes.StateUnknown
	}
	if meltingC != nil && ReferenceTemperatureC < *meltingC {
		return ctypes.StateSolid
	}
	if boilingC != nil && ReferenceTemperatureC > *boilingC {
		return ctypes.StateGas
	}
	return ctypes.StateLiquid
}

//Personal.AI order the ending
