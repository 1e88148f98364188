//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2026 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoMerge.
//
// GoMerge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoMerge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoMerge. If not, see https://www.gnu.org/licenses/.

package merger

import "fmt"

// RetentionPolicy governs how much history the merge instance retains between
// publications. It is part of instance configuration, not runtime state.
type RetentionPolicy struct {
	kind   policyKind
	cycles int64
}

type policyKind int

const (
	policyNCycles policyKind = iota
	policyLastDifference
)

// NCycles retains history for k consecutive publications: after the k-th
// publish since the last reset, the instance clears and the next cycle starts
// from empty state.
func NCycles(k int) RetentionPolicy {
	return RetentionPolicy{kind: policyNCycles, cycles: int64(k)}
}

// LastDifference retains only the updates received since the previous
// publication: the instance clears after every publish.
func LastDifference() RetentionPolicy {
	return RetentionPolicy{kind: policyLastDifference}
}

// validate checks the policy parameters.
func (p RetentionPolicy) validate() error {
	if p.kind == policyNCycles && p.cycles <= 0 {
		return fmt.Errorf("retention policy NCycles requires a positive cycle count, got %d", p.cycles)
	}
	return nil
}

// shouldClear decides, after a publish, whether accumulated state is dropped.
func (p RetentionPolicy) shouldClear(cyclesSinceReset int64) bool {
	switch p.kind {
	case policyLastDifference:
		return true
	case policyNCycles:
		return cyclesSinceReset == p.cycles
	default:
		return false
	}
}

// String returns a human-readable policy description.
func (p RetentionPolicy) String() string {
	if p.kind == policyLastDifference {
		return "LastDifference"
	}
	return fmt.Sprintf("NCycles(%d)", p.cycles)
}
