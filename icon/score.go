package icon

import (
	"slices"
	"strings"
)

// Score returns the desirability of i. It is a pure function of the icon's
// type, dimensions and purpose; the result is never negative.
func Score(i Icon) int {
	score := formatScore(i.Type) + sizeScore(i)

	if p := i.Purpose; p != "" {
		if strings.Contains(p, "maskable") {
			score += 10
		}
		if strings.Contains(p, "apple-touch-icon") {
			score += 15
		}
		if strings.Contains(p, "any") {
			score += 5
		}
		if strings.Contains(p, "og:image") {
			score -= 25
		}
	}
	return max(score, 0)
}

func formatScore(contentType string) int {
	switch contentType {
	case TypeSVG:
		return 50
	case TypePNG:
		return 40
	case TypeWEBP:
		return 35
	case TypeJPEG, "image/jpg":
		return 30
	case TypeICO, "image/vnd.microsoft.icon":
		return 20
	case TypeGIF:
		return 10
	default:
		return 5
	}
}

func sizeScore(i Icon) int {
	if !i.HasSize() {
		return 3
	}
	switch size := i.Size(); {
	case size >= 512:
		return 30
	case size >= 256:
		return 25
	case size >= 192:
		return 20
	case size >= 128:
		return 15
	case size >= 64:
		return 10
	case size >= 32:
		return 5
	default:
		return 2
	}
}

// Rank scores every icon and returns them ordered by score, highest first.
// Equal scores are ordered by URL, then type, then purpose, so the order is
// deterministic for a given input set. The input slice is not modified.
func Rank(icons []Icon) []Icon {
	out := make([]Icon, len(icons))
	for n, i := range icons {
		i.Score = Score(i)
		out[n] = i
	}
	slices.SortStableFunc(out, compareRanked)
	return out
}

func compareRanked(a, b Icon) int {
	if a.Score != b.Score {
		return b.Score - a.Score
	}
	if c := strings.Compare(a.URL, b.URL); c != 0 {
		return c
	}
	if c := strings.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	return strings.Compare(a.Purpose, b.Purpose)
}
