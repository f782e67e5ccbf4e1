package server

import (
	"fmt"
	"math"
)

const histogramBuckets = 64

// histogram is a normalised byte-value histogram of an image file. It is a
// stand-in for a real embedding: identical files score 1.0 and unrelated
// files score lower.
type histogram [histogramBuckets]float64

func histogramOf(data []byte) histogram {
	var h histogram
	for _, b := range data {
		h[int(b)*histogramBuckets/256]++
	}

	var norm float64
	for _, v := range h {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return h
	}
	for i := range h {
		h[i] /= norm
	}
	return h
}

// similarity is the cosine of two histograms, clamped to 0..1
func (h histogram) similarity(o histogram) float64 {
	var dot float64
	for i := range h {
		dot += h[i] * o[i]
	}
	if math.IsNaN(dot) || dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}

// dominantColor renders the heaviest bucket as a grey hex color
func (h histogram) dominantColor() string {
	best := 0
	for i := range h {
		if h[i] > h[best] {
			best = i
		}
	}
	v := best * 256 / histogramBuckets
	return fmt.Sprintf("#%02x%02x%02x", v, v, v)
}
