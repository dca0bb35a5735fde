// =============================
// File: internal/tx/priority.go
// =============================
package tx

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// Priority selects a compute-budget profile for a transaction.
type Priority string

const (
	PriorityDefault   Priority = "default"
	PriorityMin       Priority = "min"
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityVeryHigh  Priority = "very_high"
	PriorityUnsafeMax Priority = "unsafe_max"
)

type priorityProfile struct {
	ComputeUnits uint32
	UnitPrice    uint64 // micro-lamports per compute unit
	HeapSize     uint32
}

var priorityProfiles = map[Priority]priorityProfile{
	PriorityMin:     {ComputeUnits: 200_000, UnitPrice: 0},
	PriorityLow:     {ComputeUnits: 200_000, UnitPrice: 1_000},
	PriorityDefault: {ComputeUnits: 400_000, UnitPrice: 5_000},
	PriorityMedium:  {ComputeUnits: 400_000, UnitPrice: 5_000},
	PriorityHigh:    {ComputeUnits: 800_000, UnitPrice: 10_000},
	PriorityVeryHigh: {
		ComputeUnits: 1_000_000,
		UnitPrice:    50_000,
	},
	PriorityUnsafeMax: {
		ComputeUnits: 1_400_000,
		UnitPrice:    200_000,
		HeapSize:     32 * 1024,
	},
}

// PriorityInstructions returns the compute-budget instructions for a tier.
// These always go first in the transaction.
func PriorityInstructions(level Priority) ([]solana.Instruction, error) {
	if level == "" {
		level = PriorityDefault
	}
	profile, ok := priorityProfiles[level]
	if !ok {
		return nil, fmt.Errorf("unknown priority level: %s", level)
	}

	var instructions []solana.Instruction
	if profile.ComputeUnits > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(profile.ComputeUnits).Build())
	}
	if profile.UnitPrice > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(profile.UnitPrice).Build())
	}
	if profile.HeapSize > 0 {
		instructions = append(instructions,
			computebudget.NewRequestHeapFrameInstruction(profile.HeapSize).Build())
	}
	return instructions, nil
}

// CustomPriorityInstructions builds compute-budget instructions from raw
// values when a tier does not fit.
func CustomPriorityInstructions(units uint32, unitPrice uint64) []solana.Instruction {
	var instructions []solana.Instruction
	if units > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(units).Build())
	}
	if unitPrice > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(unitPrice).Build())
	}
	return instructions
}
