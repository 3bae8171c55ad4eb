/**
 * @description
 * Round-robin staff assignment. The rotation walks the merchant's staff ids in
 * ascending order; the persisted cursor (one staff_assignment_states row per
 * merchant) records the last id handed out. Correctness under concurrent
 * deliveries comes from the exclusive row lock taken inside the caller's open
 * transaction, not from application-level retries: each id is produced exactly
 * once per full pass over N staff, with no skips or duplicates.
 *
 * @dependencies
 * - context, errors, sort: Standard Go libraries.
 * - internal/store: The transactional repository surface.
 */

package app

import (
	"context"
	"errors"
	"sort"

	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/store"
)

// nextRoundRobinStaff picks the next staff id for a merchant and advances the
// persisted cursor, all within the caller's transaction. staffIDs must be
// non-empty; it is sorted in place to fix the rotation's total order.
func nextRoundRobinStaff(ctx context.Context, tx store.TxRepository, merchantID int64, staffIDs []int64) (int64, error) {
	if len(staffIDs) == 0 {
		return 0, validationErrorf("staff list is empty")
	}

	sort.Slice(staffIDs, func(i, j int) bool { return staffIDs[i] < staffIDs[j] })

	state, err := tx.GetAssignmentStateForUpdate(ctx, merchantID)
	if err != nil {
		if errors.Is(err, store.ErrStateNotFound) {
			// First assignment for this merchant. No row exists to contend
			// over; the unique constraint on merchant_id guards the race.
			first := staffIDs[0]
			if err := tx.CreateAssignmentState(ctx, merchantID, first); err != nil {
				return 0, err
			}
			return first, nil
		}
		return 0, err
	}

	// A cursor pointing at a staff member who has since been removed yields
	// index -1, which wraps the rotation back to the first id.
	lastIndex := -1
	for i, id := range staffIDs {
		if id == state.LastStaffAssigned {
			lastIndex = i
			break
		}
	}
	next := staffIDs[(lastIndex+1)%len(staffIDs)]

	if err := tx.UpdateAssignmentState(ctx, merchantID, next); err != nil {
		return 0, err
	}
	return next, nil
}
