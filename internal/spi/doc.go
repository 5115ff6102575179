// Package spi simulates single-pixel imaging with a Hadamard sensing basis.
//
// A scene is flattened row-major and measured twice, once through the
// non-negative Plus patterns and once through their complements. The signed
// difference equals the projection onto the ±1 Hadamard basis, which is what a
// modulator that cannot display negative light has to do. Reconstruction is a
// direct LU solve of H·x = M.
//
// Two noise models are available: independent Gaussian noise on each
// acquisition branch, and non-negative scene noise calibrated to a target SNR.
// Randomness always comes from an injected golang.org/x/exp/rand.Source.
package spi
