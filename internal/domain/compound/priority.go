package compound

import (
	"sort"

	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// RankUnranked is the severity rank assigned to pictogram labels outside the
// known category set and to compounds with no pictograms at all.  It sorts
// after every ranked category.
const RankUnranked = 99

// pictogramRank maps each known GHS pictogram category to its severity rank.
// Lower is more severe; ties share a rank.
var pictogramRank = map[ctypes.Pictogram]int{
	ctypes.PictogramExplosive:           1,
	ctypes.PictogramCompressedGas:       1,
	ctypes.PictogramOxidizer:            2,
	ctypes.PictogramFlammable:           3,
	ctypes.PictogramCorrosive:           4,
	ctypes.PictogramHealthHazard:        5,
	ctypes.PictogramAcuteToxic:          5,
	ctypes.PictogramIrritant:            6,
	ctypes.PictogramEnvironmentalHazard: 6,
}

// PriorityRank returns the severity rank of a pictogram category.
// Unrecognised labels rank RankUnranked.
func PriorityRank(p ctypes.Pictogram) int {
	if rank, ok := pictogramRank[p]; ok {
		return rank
	}
	return RankUnranked
}

// PrioritizePictograms returns a new slice with the given pictogram labels
// ordered by severity rank ascending.  The sort is stable: labels sharing a
// rank keep their input relative order, which makes downstream routing
// deterministic.  An empty input yields an empty output.
func PrioritizePictograms(labels []ctypes.Pictogram) []ctypes.Pictogram {
	ordered := make([]ctypes.Pictogram, len(labels))
	copy(ordered, labels)
	sort.SliceStable(ordered, func(i, j int) bool {
		return PriorityRank(ordered[i]) < PriorityRank(ordered[j])
	})
	return ordered
}

//Personal.AI order the ending
