package mesh

import "errors"

// Rejections: the mesh is left unchanged.
var (
	ErrNotInitialized     = errors.New("mesh not initialized")
	ErrInvalidLayout      = errors.New("invalid mesh layout")
	ErrInvalidLimits      = errors.New("invalid spatial limits")
	ErrLevelTooHigh       = errors.New("refinement level exceeds maximum")
	ErrOutOfRange         = errors.New("block index out of range")
	ErrOutsideDomain      = errors.New("point outside mesh domain")
	ErrBlockNotFound      = errors.New("block does not exist")
	ErrAtMaxLevel         = errors.New("block already at maximum refinement level")
	ErrAtBaseLevel        = errors.New("block at base level cannot be coarsened")
	ErrNeighborTooFine    = errors.New("coarsening would violate 2:1 balance")
	ErrIncompleteSiblings = errors.New("sibling group incomplete")
	ErrMissingCallback    = errors.New("lifecycle callback missing")
	ErrInvalidHandle      = errors.New("callback returned invalid local id")
)

// ErrDeleteFailed is returned by Finalize when the delete hook reported
// failure for at least one block. The sweep still visits every block.
var ErrDeleteFailed = errors.New("delete callback failed")

// ErrCorruptIndex signals an internal invariant violation: the index no
// longer agrees with what a preceding check observed. The embedding system
// decides how to react; the mesh never exits the process.
var ErrCorruptIndex = errors.New("mesh index corrupted")

// Structural violations reported by Verify.
var (
	ErrOverlap     = errors.New("block overlaps a present ancestor")
	ErrCoverageGap = errors.New("present blocks do not cover the domain")
	ErrUnbalanced  = errors.New("adjacent blocks differ by more than one level")
)
