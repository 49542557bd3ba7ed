package facematch

import "math"

// Location is a face bounding box in pixel coordinates, in the
// (top, right, bottom, left) order face encoders conventionally report.
type Location struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// LocationFromBBox converts a corner bbox [x1, y1, x2, y2] to a Location.
// Returns the zero Location for malformed input.
func LocationFromBBox(bbox []float64) Location {
	if len(bbox) != 4 {
		return Location{}
	}
	return Location{
		Top:    int(math.Round(bbox[1])),
		Right:  int(math.Round(bbox[2])),
		Bottom: int(math.Round(bbox[3])),
		Left:   int(math.Round(bbox[0])),
	}
}

// ScaleBBox scales a corner bbox by factor. Used to map boxes detected on a
// downscaled image back to the original pixel space.
func ScaleBBox(bbox []float64, factor float64) []float64 {
	if len(bbox) != 4 || factor <= 0 {
		return bbox
	}
	return []float64{
		bbox[0] * factor,
		bbox[1] * factor,
		bbox[2] * factor,
		bbox[3] * factor,
	}
}
