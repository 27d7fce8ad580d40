package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

func TestCondition_Validate(t *testing.T) {
	t.Parallel()

	valid := domain.Condition{BatteryPercent: 88, NWStatus: domain.NWOK, CameraStain: domain.StainNone}

	tests := []struct {
		name      string
		mutate    func(*domain.Condition)
		wantField string
	}{
		{name: "valid", mutate: func(*domain.Condition) {}},
		{name: "battery 0", mutate: func(c *domain.Condition) { c.BatteryPercent = 0 }, wantField: "battery_percent"},
		{name: "battery 1", mutate: func(c *domain.Condition) { c.BatteryPercent = 1 }},
		{name: "battery 100", mutate: func(c *domain.Condition) { c.BatteryPercent = 100 }},
		{name: "battery 101", mutate: func(c *domain.Condition) { c.BatteryPercent = 101 }, wantField: "battery_percent"},
		{name: "negative battery", mutate: func(c *domain.Condition) { c.BatteryPercent = -5 }, wantField: "battery_percent"},
		{
			name: "service state ignores battery 0",
			mutate: func(c *domain.Condition) {
				c.IsServiceState = true
				c.BatteryPercent = 0
			},
		},
		{
			name: "service state ignores battery 101",
			mutate: func(c *domain.Condition) {
				c.IsServiceState = true
				c.BatteryPercent = 101
			},
		},
		{name: "unknown network status", mutate: func(c *domain.Condition) { c.NWStatus = "unknown" }, wantField: "nw_status"},
		{name: "empty network status", mutate: func(c *domain.Condition) { c.NWStatus = "" }, wantField: "nw_status"},
		{name: "unknown stain", mutate: func(c *domain.Condition) { c.CameraStain = "huge" }, wantField: "camera_stain"},
		{
			name: "flags do not affect validity",
			mutate: func(c *domain.Condition) {
				c.CameraBroken = true
				c.RepairHistory = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestRank_Order(t *testing.T) {
	t.Parallel()

	ranks := domain.Ranks()
	require.Len(t, ranks, 5)
	for i, r := range ranks {
		assert.True(t, r.Valid(), r)
		assert.Equal(t, i, r.Order())
	}

	assert.True(t, domain.RankMint.BetterThan(domain.RankExcel))
	assert.False(t, domain.RankRepair.BetterThan(domain.RankFair))
	assert.False(t, domain.RankGood.BetterThan(domain.RankGood))
	assert.False(t, domain.Rank("Aランク").Valid())
	assert.Equal(t, -1, domain.Rank("Aランク").Order())
	assert.False(t, domain.Rank("Aランク").BetterThan(domain.RankRepair))

	// Ranks returns a copy.
	ranks[0] = "changed"
	assert.Equal(t, domain.RankMint, domain.Ranks()[0])
}

func TestLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "nw ok", got: domain.NWOK.Label(), want: "○"},
		{name: "nw triangle", got: domain.NWTriangle.Label(), want: "△"},
		{name: "nw cross", got: domain.NWCross.Label(), want: "×"},
		{name: "nw unknown echoes token", got: domain.NWStatus("x").Label(), want: "x"},
		{name: "stain none", got: domain.StainNone.Label(), want: "なし"},
		{name: "stain minor", got: domain.StainMinor.Label(), want: "小"},
		{name: "stain major", got: domain.StainMajor.Label(), want: "大"},
		{name: "bool true", got: domain.BoolLabel(true), want: "あり"},
		{name: "bool false", got: domain.BoolLabel(false), want: "なし"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
