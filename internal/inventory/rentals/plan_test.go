package rentals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCheckin(t *testing.T) {
	tests := []struct {
		name              string
		amount            int
		alreadyReturned   int
		alreadyWrittenOff int
		goodQty           int
		defectQty         int
		want              checkinPlan
		wantErrCode       Code
	}{
		{
			name:   "full return in one go",
			amount: 5, goodQty: 5,
			want: checkinPlan{Restore: 5, Closes: true, FinalStatus: StatusReturned},
		},
		{
			name:   "everything defective",
			amount: 3, defectQty: 3,
			want: checkinPlan{Writeoff: 3, Closes: true, FinalStatus: StatusDefective},
		},
		{
			name:   "mixed split closes as defective",
			amount: 4, goodQty: 3, defectQty: 1,
			want: checkinPlan{Restore: 3, Writeoff: 1, Closes: true, FinalStatus: StatusDefective},
		},
		{
			name:   "partial return stays open",
			amount: 10, goodQty: 4,
			want: checkinPlan{Restore: 4},
		},
		{
			name:   "second partial closes",
			amount: 10, alreadyReturned: 4, goodQty: 6,
			want: checkinPlan{Restore: 6, Closes: true, FinalStatus: StatusReturned},
		},
		{
			name:   "earlier writeoff taints final status",
			amount: 10, alreadyReturned: 4, alreadyWrittenOff: 2, goodQty: 4,
			want: checkinPlan{Restore: 4, Closes: true, FinalStatus: StatusDefective},
		},
		{
			name:   "over-return rejected",
			amount: 5, alreadyReturned: 3, goodQty: 3,
			wantErrCode: CodeOverReturn,
		},
		{
			name:   "nothing to check in",
			amount: 5,
			wantErrCode: CodeInvalidArgument,
		},
		{
			name:   "negative quantity rejected",
			amount: 5, goodQty: -1, defectQty: 2,
			wantErrCode: CodeInvalidArgument,
		},
		{
			name:   "already settled rental",
			amount: 5, alreadyReturned: 5, goodQty: 1,
			wantErrCode: CodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planCheckin(tt.amount, tt.alreadyReturned, tt.alreadyWrittenOff, tt.goodQty, tt.defectQty)
			if tt.wantErrCode != "" {
				require.Error(t, err)
				var api *APIError
				require.ErrorAs(t, err, &api)
				assert.Equal(t, tt.wantErrCode, api.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanCheckinConservation(t *testing.T) {
	// restored plus written-off never exceeds the checked-out amount,
	// across any sequence of partial checkins.
	amount := 7
	returned, writtenOff := 0, 0

	steps := []struct{ good, defect int }{{2, 1}, {1, 0}, {2, 1}}
	for _, st := range steps {
		plan, err := planCheckin(amount, returned, writtenOff, st.good, st.defect)
		require.NoError(t, err)
		returned += plan.Restore
		writtenOff += plan.Writeoff
		assert.LessOrEqual(t, returned+writtenOff, amount)
	}

	assert.Equal(t, 5, returned)
	assert.Equal(t, 2, writtenOff)

	plan, err := planCheckin(amount, returned, writtenOff, 0, 2)
	require.NoError(t, err)
	assert.True(t, plan.Closes)
	assert.Equal(t, StatusDefective, plan.FinalStatus)
}
