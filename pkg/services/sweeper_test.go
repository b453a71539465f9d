package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormSweeper(t *testing.T) {
	f := newFixture(t)
	forms := newForms(t, f)

	tests := []struct {
		name     string
		schedule string
		want     string
		wantErr  bool
	}{
		{name: "default schedule", schedule: "", want: DefaultSweepSchedule},
		{name: "custom schedule", schedule: "*/5 * * * *", want: "*/5 * * * *"},
		{name: "invalid schedule", schedule: "every minute", wantErr: true},
		{name: "seconds field is rejected", schedule: "0 * * * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper, err := NewFormSweeper(forms, tt.schedule, testLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, sweeper)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, sweeper.schedule)
		})
	}
}

func TestFormSweeper_StartStop(t *testing.T) {
	f := newFixture(t)
	forms := newForms(t, f)

	sweeper, err := NewFormSweeper(forms, "", testLogger())
	require.NoError(t, err)

	require.NoError(t, sweeper.Start())
	require.NoError(t, sweeper.Start(), "starting twice is a no-op")
	assert.NotNil(t, sweeper.cron)
	assert.Len(t, sweeper.cron.Entries(), 1)

	sweeper.Stop()
	assert.Nil(t, sweeper.cron)

	sweeper.Stop()
}
