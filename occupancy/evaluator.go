/*
Package occupancy decides which detections in a frame occupy the monitored
area and counts them.  Every frame is evaluated independently, nothing is
kept between calls.
*/
package occupancy

import (
	"github.com/swdee/go-parkcount/roi"
	"strings"
)

// Region answers containment queries for a point, it is satisfied by
// *roi.ROI
type Region interface {
	Contains(p roi.Point) roi.Containment
}

// TargetClasses are the label tokens a detection must contain to be
// considered.  Matching is by substring, so the token "car" also matches a
// label such as "sports car".
type TargetClasses []string

// NewTargetClasses returns the set of tokens with surrounding whitespace
// trimmed, empty and duplicate tokens removed and the original order kept
func NewTargetClasses(tokens ...string) TargetClasses {

	tc := make(TargetClasses, 0, len(tokens))
	seen := make(map[string]bool)

	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)

		if tok == "" || seen[tok] {
			continue
		}

		seen[tok] = true
		tc = append(tc, tok)
	}

	return tc
}

// Match reports if any target token appears within the label
func (tc TargetClasses) Match(label string) bool {

	for _, tok := range tc {
		if strings.Contains(label, tok) {
			return true
		}
	}

	return false
}

// Result is the outcome of evaluating one frame
type Result struct {
	// Count is the number of detections occupying the area
	Count int
	// Occupied are the detections that counted, in input order
	Occupied []Detection
}

// Evaluate filters the detections by target class and keeps those whose box
// center lies inside or on the boundary of the region
func Evaluate(detections []Detection, region Region, targets TargetClasses) Result {

	occupied := make([]Detection, 0)

	for _, det := range detections {

		if !targets.Match(det.Label) {
			continue
		}

		if region.Contains(det.Box.Center()).Counts() {
			occupied = append(occupied, det)
		}
	}

	return Result{
		Count:    len(occupied),
		Occupied: occupied,
	}
}

// Evaluator binds the region and target classes of a monitoring session so
// they are passed around as a single immutable value
type Evaluator struct {
	region  Region
	targets TargetClasses
}

// NewEvaluator returns an Evaluator for the given region and targets
func NewEvaluator(region Region, targets TargetClasses) *Evaluator {

	t := make(TargetClasses, len(targets))
	copy(t, targets)

	return &Evaluator{
		region:  region,
		targets: t,
	}
}

// Evaluate runs Evaluate for the frame detections
func (e *Evaluator) Evaluate(detections []Detection) Result {
	return Evaluate(detections, e.region, e.targets)
}

// Targets returns a copy of the target classes
func (e *Evaluator) Targets() TargetClasses {
	t := make(TargetClasses, len(e.targets))
	copy(t, e.targets)
	return t
}
