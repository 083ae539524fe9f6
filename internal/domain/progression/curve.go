package progression

// Level bounds and rarity thresholds.
const (
	minLevel = 1
	maxLevel = 100

	uncommonLevel  = 20
	rareLevel      = 40
	epicLevel      = 60
	legendaryLevel = 80
)

// Default XP curve parameters: the XP needed to leave level L grows
// geometrically from baseRequirement by growthNum/growthDen per level.
const (
	baseRequirement = 100
	growthNum       = 112
	growthDen       = 100
)

// buildCurve precomputes the XP required to advance from each level
// 1..maxLevel-1. The curve is fixed at engine construction and never
// changes afterwards so historical level-ups stay reproducible.
//
// Integer arithmetic keeps the table identical across platforms.
func buildCurve() []uint64 {
	curve := make([]uint64, maxLevel) // index by level; [0] unused
	req := uint64(baseRequirement)
	for level := minLevel; level < maxLevel; level++ {
		curve[level] = req
		req = req * growthNum / growthDen
	}
	return curve
}
