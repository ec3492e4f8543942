package internal

import (
	"fmt"
	"image"
	"math/bits"

	"github.com/disintegration/imaging"
)

// dHash geometry: 9x8 grayscale grid yields 8 horizontal gradients per row.
const (
	hashWidth  = 9
	hashHeight = 8
)

// DifferenceHash computes a 64-bit difference hash of the image: each bit
// records whether brightness increases between two horizontally adjacent
// pixels of a 9x8 grayscale thumbnail. Visually similar images produce
// hashes with a low Hamming distance.
func DifferenceHash(img image.Image) uint64 {
	thumb := imaging.Resize(imaging.Grayscale(img), hashWidth, hashHeight, imaging.Lanczos)

	var hash uint64
	for y := 0; y < hashHeight; y++ {
		for x := 0; x < hashWidth-1; x++ {
			hash <<= 1
			// Grayscale image: any channel is the luminance.
			if thumb.NRGBAAt(x, y).R < thumb.NRGBAAt(x+1, y).R {
				hash |= 1
			}
		}
	}
	return hash
}

// FileDifferenceHash decodes an image file and returns its difference
// hash. Videos and undecodable files yield an error; callers treat that as
// "no perceptual hash", not a failure.
func FileDifferenceHash(path string) (uint64, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return 0, fmt.Errorf("cannot decode %s: %w", path, err)
	}
	return DifferenceHash(img), nil
}

// HammingDistance counts the differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
