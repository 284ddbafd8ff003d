package rentals

// checkinPlan is the outcome of one checkin call, computed before any row
// is touched: how much goes back to stock, how much is written off, and
// whether the rental closes.
type checkinPlan struct {
	Restore     int
	Writeoff    int
	Closes      bool
	FinalStatus string // only set when Closes
}

// planCheckin validates a good/defective split against the rental state.
// goodQty is restored to stock; defectQty is written off and never restored.
// goodQty + defectQty may be less than the outstanding quantity; the
// remainder stays out and the rental stays open.
func planCheckin(amount, alreadyReturned, alreadyWrittenOff, goodQty, defectQty int) (checkinPlan, error) {
	if goodQty < 0 || defectQty < 0 {
		return checkinPlan{}, ErrInvalid("returned and defective quantities must be >= 0")
	}
	if goodQty+defectQty < 1 {
		return checkinPlan{}, ErrInvalid("nothing to check in")
	}

	outstanding := amount - alreadyReturned - alreadyWrittenOff
	if outstanding <= 0 {
		return checkinPlan{}, ErrConflict("rental has nothing outstanding")
	}
	if goodQty+defectQty > outstanding {
		return checkinPlan{}, ErrOverReturn(outstanding)
	}

	plan := checkinPlan{Restore: goodQty, Writeoff: defectQty}
	if goodQty+defectQty == outstanding {
		plan.Closes = true
		if alreadyWrittenOff+defectQty > 0 {
			plan.FinalStatus = StatusDefective
		} else {
			plan.FinalStatus = StatusReturned
		}
	}
	return plan, nil
}
