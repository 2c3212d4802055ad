package detect

// candidate is an output row that passed the box threshold
type candidate struct {
	// box is x, y, width, height in model input space
	box   [4]float32
	score float32
	class int
}

// iou returns the Intersection over Union of the two candidate boxes
func iou(a, b candidate) float32 {

	w := min(a.box[0]+a.box[2], b.box[0]+b.box[2]) - max(a.box[0], b.box[0])
	h := min(a.box[1]+a.box[3], b.box[1]+b.box[3]) - max(a.box[1], b.box[1])

	if w <= 0 || h <= 0 {
		return 0
	}

	inter := w * h
	union := a.box[2]*a.box[3] + b.box[2]*b.box[3] - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}

// suppress runs Non-Maximum Suppression over candidates sorted by descending
// score.  A candidate is dropped when it overlaps a higher scoring kept
// candidate of the same class by more than threshold.  The returned slice
// marks the candidates kept.
func suppress(cands []candidate, threshold float32) []bool {

	kept := make([]bool, len(cands))

	for i := range cands {
		kept[i] = true

		for j := 0; j < i; j++ {
			if kept[j] && cands[j].class == cands[i].class && iou(cands[j], cands[i]) > threshold {
				kept[i] = false
				break
			}
		}
	}

	return kept
}
