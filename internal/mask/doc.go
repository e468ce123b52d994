// Package mask builds pixel masks for detector frames.
//
// The central operation is ring refinement: pixels are grouped into rings of
// equal scattering vector q, and any pixel whose intensity lies more than alpha
// standard deviations from its ring's mean is excluded. Refinement is usually
// iterated until the mask converges, see RefineRingIter.
//
// Simpler producers cover hot pixels (Threshold, ThresholdStack) and detector
// borders (Edge). All producers return a new mask and leave their inputs
// unchanged, so masks can be combined freely with detector.Mask.And.
package mask
