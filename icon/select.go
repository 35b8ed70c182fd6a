package icon

// SelectBest picks the icon to serve from a ranked list.
//
// With size <= 0 the first (highest scored) icon wins. Otherwise the icon
// with known dimensions whose larger side is closest to size wins; at equal
// distance the larger icon is preferred, then the earlier one. When no icon
// has known dimensions the first icon is returned.
func SelectBest(ranked []Icon, size int) (Icon, bool) {
	if len(ranked) == 0 {
		return Icon{}, false
	}
	if size <= 0 {
		return ranked[0], true
	}

	best := -1
	bestDist := 0
	for n, i := range ranked {
		if !i.HasSize() {
			continue
		}
		dist := abs(i.Size() - size)
		if best < 0 || dist < bestDist || (dist == bestDist && i.Size() > ranked[best].Size()) {
			best, bestDist = n, dist
		}
	}
	if best < 0 {
		return ranked[0], true
	}
	return ranked[best], true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
