package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMachine_Check(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		verb    string
		want    string
		wantErr error
	}{
		{name: "start pending", from: "PENDING", verb: "start", want: "ONGOING"},
		{name: "cancel pending", from: "PENDING", verb: "cancel", want: "CANCELLED"},
		{name: "cancel ongoing", from: "ONGOING", verb: "cancel", want: "CANCELLED"},
		{name: "finish pending", from: "PENDING", verb: "finish", wantErr: ErrIllegalTransition},
		{name: "terminal status", from: "CANCELLED", verb: "start", wantErr: ErrIllegalTransition},
		{name: "unknown status", from: "LOL", verb: "start", wantErr: ErrIllegalTransition},
		{name: "unknown verb", from: "PENDING", verb: "restart", wantErr: ErrUnknownVerb},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := campaignMachine.Check(tt.from, tt.verb)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("Check() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMachine_listings(t *testing.T) {
	assert.Equal(t, []string{"CANCELLED", "ONGOING"}, campaignMachine.Next("PENDING"))
	assert.Empty(t, campaignMachine.Next("FINISHED"))
	assert.Equal(t, []string{"cancel", "finish"}, campaignMachine.Verbs("ONGOING"))
	assert.Empty(t, campaignMachine.Verbs("CANCELLED"))
	assert.Equal(t, []string{"CANCELLED", "FINISHED", "ONGOING", "PENDING"}, campaignMachine.Statuses())

	to, ok := campaignMachine.Target("finish")
	assert.True(t, ok)
	assert.Equal(t, "FINISHED", to)
	assert.True(t, campaignMachine.CanTransition("ONGOING", "FINISHED"))
	assert.False(t, campaignMachine.CanTransition("FINISHED", "ONGOING"))
}
