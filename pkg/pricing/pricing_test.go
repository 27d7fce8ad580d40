package pricing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

const (
	testModel   = "iPhone 13"
	testStorage = "128GB"
)

func testTables(t *testing.T) *Tables {
	t.Helper()

	rule := func(typ DeductionType, amount int) DeductionRule {
		return DeductionRule{Model: testModel, Storage: testStorage, Type: typ, Amount: amount}
	}

	tables, err := NewTables(
		[]BasePrice{
			{Model: testModel, Storage: testStorage, Rank: domain.RankExcel, Price: 60000},
			{Model: testModel, Storage: testStorage, Rank: domain.RankGood, Price: 52000},
		},
		[]DeductionRule{
			rule(DeductBattery90, 0),
			rule(DeductBattery80to89, 1500),
			rule(DeductBattery79, 3000),
			rule(DeductNWOK, 0),
			rule(DeductNWChecking, 5000),
			rule(DeductNWNG, 20000),
			rule(DeductCameraBroken, 8000),
			rule(DeductCameraStain, 1000),
			rule(DeductCameraStainMajor, 2500),
			rule(DeductRepairHistory, 4000),
		},
		[]DeductionRule{
			rule(ResaleCameraStainMinor, 500),
			rule(ResaleCameraStainMajor, 1500),
			rule(ResaleNWTriangle, 2000),
			rule(ResaleNWCross, 10000),
		},
	)
	require.NoError(t, err)
	return tables
}

func scenarioItem() *domain.RequestItem {
	return &domain.RequestItem{
		ID:      "item-1",
		Model:   testModel,
		Storage: testStorage,
		Rank:    domain.RankExcel,
		Condition: domain.Condition{
			BatteryPercent: 85,
			NWStatus:       domain.NWTriangle,
			CameraStain:    domain.StainMinor,
		},
		BasePrice:      60000,
		EstimatedPrice: 52500,
	}
}

func TestEvaluate_Brackets(t *testing.T) {
	t.Parallel()

	tables := testTables(t)

	tests := []struct {
		name string
		cond domain.Condition
		want int
	}{
		{
			name: "battery 100 network ok no damage",
			cond: domain.Condition{BatteryPercent: 100, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
			want: 0,
		},
		{
			name: "battery 90 is top bracket",
			cond: domain.Condition{BatteryPercent: 90, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
			want: 0,
		},
		{
			name: "battery 89 is middle bracket",
			cond: domain.Condition{BatteryPercent: 89, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
			want: 1500,
		},
		{
			name: "battery 80 is middle bracket",
			cond: domain.Condition{BatteryPercent: 80, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
			want: 1500,
		},
		{
			name: "battery 79 is lowest bracket",
			cond: domain.Condition{BatteryPercent: 79, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
			want: 3000,
		},
		{
			name: "service state overrides a high reading",
			cond: domain.Condition{BatteryPercent: 98, IsServiceState: true, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
			want: 3000,
		},
		{
			name: "network cross",
			cond: domain.Condition{BatteryPercent: 95, NWStatus: domain.NWCross, CameraStain: domain.StainNone},
			want: 20000,
		},
		{
			name: "major stain broken camera repair history",
			cond: domain.Condition{
				BatteryPercent: 95,
				NWStatus:       domain.NWOK,
				CameraStain:    domain.StainMajor,
				CameraBroken:   true,
				RepairHistory:  true,
			},
			want: 2500 + 8000 + 4000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Evaluate(tt.cond, tables.Buyback(), testModel, testStorage)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_EmptyTableIsZero(t *testing.T) {
	t.Parallel()

	for _, nw := range []domain.NWStatus{domain.NWOK, domain.NWTriangle, domain.NWCross} {
		for _, stain := range []domain.CameraStain{domain.StainNone, domain.StainMinor, domain.StainMajor} {
			for battery := 1; battery <= 100; battery += 11 {
				for _, flag := range []bool{false, true} {
					cond := domain.Condition{
						BatteryPercent: battery,
						IsServiceState: flag,
						NWStatus:       nw,
						CameraStain:    stain,
						CameraBroken:   flag,
						RepairHistory:  !flag,
					}
					name := fmt.Sprintf("%s/%s/%d/%v", nw, stain, battery, flag)
					assert.Zero(t, Evaluate(cond, EmptyTable, "Unknown", "1TB"), name)
					assert.Zero(t, Evaluate(cond, nil, "Unknown", "1TB"), name)
				}
			}
		}
	}
}

func TestBreakdown_MarksGaps(t *testing.T) {
	t.Parallel()

	tables := testTables(t)
	cond := domain.Condition{BatteryPercent: 75, NWStatus: domain.NWTriangle, CameraStain: domain.StainMinor}

	lines := Breakdown(cond, tables.Buyback(), "iPhone 12", testStorage)
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.True(t, l.Gap, "no rows exist for iPhone 12")
		assert.Zero(t, l.Amount)
	}

	lines = Breakdown(cond, tables.Buyback(), testModel, testStorage)
	assert.Equal(t, []Line{
		{Type: DeductBattery79, Amount: 3000},
		{Type: DeductNWChecking, Amount: 5000},
		{Type: DeductCameraStain, Amount: 1000},
	}, lines)
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         int
		guarantee   int
		wantFinal   int
		wantApplied bool
	}{
		{name: "no floor", raw: 40000, guarantee: 0, wantFinal: 40000},
		{name: "raw above floor", raw: 51000, guarantee: 50000, wantFinal: 51000},
		{name: "raw equals floor", raw: 50000, guarantee: 50000, wantFinal: 50000},
		{name: "raw below floor", raw: 51000, guarantee: 55000, wantFinal: 55000, wantApplied: true},
		{name: "zero raw below floor", raw: 0, guarantee: 1, wantFinal: 1, wantApplied: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Reconcile(tt.raw, tt.guarantee)
			assert.Equal(t, tt.wantFinal, got.FinalPrice)
			assert.Equal(t, tt.wantApplied, got.GuaranteeApplied)
		})
	}
}

func TestReconcile_FloorInvariant(t *testing.T) {
	t.Parallel()

	for raw := 0; raw <= 100000; raw += 7919 {
		for guarantee := 0; guarantee <= 100000; guarantee += 6007 {
			got := Reconcile(raw, guarantee)
			assert.GreaterOrEqual(t, got.FinalPrice, guarantee)
			if raw >= guarantee {
				assert.Equal(t, raw, got.FinalPrice)
				assert.False(t, got.GuaranteeApplied)
			}
		}
	}
}

func TestRecompute_NoChangeReturnsPreliminary(t *testing.T) {
	t.Parallel()

	tables := testTables(t)
	item := scenarioItem()

	conditions := []domain.Condition{
		item.Condition,
		{BatteryPercent: 10, NWStatus: domain.NWCross, CameraStain: domain.StainMajor, CameraBroken: true},
		{BatteryPercent: 100, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
	}

	for _, cond := range conditions {
		changes := SeedChanges(&domain.RequestItem{
			ID: item.ID, Model: item.Model, Storage: item.Storage, Rank: item.Rank, Condition: cond,
		})
		got, err := Recompute(changes, 60000, 0, 12345, tables.Buyback(), testModel, testStorage, cond)
		require.NoError(t, err)
		assert.Equal(t, 12345, got.FinalPrice)
		assert.Equal(t, 12345, got.RawPrice)
		assert.False(t, got.GuaranteeApplied)
		assert.False(t, got.Recomputed)
		assert.Nil(t, got.Lines)
	}
}

func TestRecompute_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		guarantee   int
		wantRaw     int
		wantFinal   int
		wantApplied bool
	}{
		{name: "guarantee below raw", guarantee: 50000, wantRaw: 51000, wantFinal: 51000},
		{name: "guarantee above raw", guarantee: 55000, wantRaw: 51000, wantFinal: 55000, wantApplied: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tables := testTables(t)
			item := scenarioItem()
			changes := SeedChanges(item)
			require.NoError(t, SetAfter(&changes[0], "75"))
			require.True(t, changes[0].HasChanged)

			got, err := Recompute(
				changes, item.BasePrice, tt.guarantee, item.EstimatedPrice,
				tables.Buyback(), item.Model, item.Storage, item.Condition,
			)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRaw, got.RawPrice)
			assert.Equal(t, tt.wantFinal, got.FinalPrice)
			assert.Equal(t, tt.wantApplied, got.GuaranteeApplied)
			assert.Equal(t, 9000, got.Deduction)

			sum := 0
			for _, l := range got.Lines {
				sum += l.Amount
			}
			assert.Equal(t, got.Deduction, sum)
		})
	}
}

func TestRecompute_MalformedToken(t *testing.T) {
	t.Parallel()

	item := scenarioItem()
	changes := SeedChanges(item)
	changes[2].After = domain.FieldValue{Value: "unknown"}
	changes[2].HasChanged = true

	_, err := Recompute(changes, 60000, 0, 50000, EmptyTable, testModel, testStorage, item.Condition)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "nw_status", verr.Field)
}

func TestSeedChanges(t *testing.T) {
	t.Parallel()

	changes := SeedChanges(scenarioItem())
	require.Len(t, changes, len(domain.TrackedFields))

	byField := map[domain.ChangeField]domain.ItemChange{}
	for _, c := range changes {
		assert.False(t, c.HasChanged)
		assert.Equal(t, c.Before, c.After)
		assert.Equal(t, "item-1", c.ItemID)
		byField[c.Field] = c
	}

	assert.Equal(t, domain.FieldValue{Value: "85", Display: "85%"}, byField[domain.FieldBatteryPercent].Before)
	assert.Equal(t, domain.FieldValue{Value: "triangle", Display: "△"}, byField[domain.FieldNWStatus].Before)
	assert.Equal(t, domain.FieldValue{Value: "false", Display: "なし"}, byField[domain.FieldRepairHistory].Before)
	assert.Equal(t, domain.FieldValue{Value: "美品", Display: "美品"}, byField[domain.FieldRank].Before)
}

func TestSetAfter_RevertClearsChanged(t *testing.T) {
	t.Parallel()

	changes := SeedChanges(scenarioItem())
	stain := &changes[3]
	require.Equal(t, domain.FieldCameraStain, stain.Field)

	require.NoError(t, SetAfter(stain, "major"))
	assert.True(t, stain.HasChanged)
	assert.Equal(t, "大", stain.After.Display)

	require.NoError(t, SetAfter(stain, "minor"))
	assert.False(t, stain.HasChanged)

	require.Error(t, SetAfter(stain, "huge"))
}

func TestEffectiveRank(t *testing.T) {
	t.Parallel()

	changes := SeedChanges(scenarioItem())
	rank, err := EffectiveRank(changes, domain.RankRepair)
	require.NoError(t, err)
	assert.Equal(t, domain.RankExcel, rank)

	require.NoError(t, SetAfter(&changes[6], string(domain.RankGood)))
	rank, err = EffectiveRank(changes, domain.RankRepair)
	require.NoError(t, err)
	assert.Equal(t, domain.RankGood, rank)

	rank, err = EffectiveRank(nil, domain.RankRepair)
	require.NoError(t, err)
	assert.Equal(t, domain.RankRepair, rank)
}

func TestResalePrice(t *testing.T) {
	t.Parallel()

	tables := testTables(t)
	rule := DefaultResaleRule()

	tests := []struct {
		name string
		cond domain.Condition
		want int
	}{
		{
			name: "healthy device keeps base",
			cond: domain.Condition{BatteryPercent: 90, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
			want: 60000,
		},
		{
			name: "low battery takes rate",
			cond: domain.Condition{BatteryPercent: 79, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
			want: 54000,
		},
		{
			name: "service state takes rate",
			cond: domain.Condition{BatteryPercent: 99, IsServiceState: true, NWStatus: domain.NWOK, CameraStain: domain.StainNone},
			want: 54000,
		},
		{
			name: "stain and network",
			cond: domain.Condition{BatteryPercent: 85, NWStatus: domain.NWTriangle, CameraStain: domain.StainMajor},
			want: 60000 - 1500 - 2000,
		},
		{
			name: "broken camera is not a resale deduction",
			cond: domain.Condition{BatteryPercent: 85, NWStatus: domain.NWOK, CameraStain: domain.StainNone, CameraBroken: true},
			want: 60000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ResalePrice(tt.cond, 60000, tables.Resale(), testModel, testStorage, rule)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResalePrice_RoundsRate(t *testing.T) {
	t.Parallel()

	cond := domain.Condition{BatteryPercent: 50, NWStatus: domain.NWOK, CameraStain: domain.StainNone}
	rule := ResaleRule{BatteryThreshold: 80, BatteryRate: 0.15}

	// 33333 * 0.15 = 4999.95
	assert.Equal(t, 5000, EvaluateResale(cond, 33333, EmptyTable, testModel, testStorage, rule))
	assert.Equal(t, 0, ResalePrice(cond, 100, EmptyTable, testModel, testStorage, ResaleRule{BatteryThreshold: 80, BatteryRate: 2}))
}

func TestBuybackPrice_FloorsAtZero(t *testing.T) {
	t.Parallel()

	tables := testTables(t)
	cond := domain.Condition{BatteryPercent: 10, NWStatus: domain.NWCross, CameraStain: domain.StainMajor, CameraBroken: true}

	got := BuybackPrice(cond, 1000, 0, tables.Buyback(), testModel, testStorage)
	assert.Zero(t, got.RawPrice)
	assert.Zero(t, got.FinalPrice)
	assert.True(t, got.Recomputed)
}

func TestParseTables(t *testing.T) {
	t.Parallel()

	doc := `
base_prices:
  - {model: iPhone 13, storage: 128GB, rank: 美品, price: 60000}
buyback_deductions:
  - {model: iPhone 13, storage: 128GB, type: battery_79, amount: 3000}
resale_deductions:
  - {model: iPhone 13, storage: 128GB, type: nw_cross, amount: 9000}
`
	tables, err := ParseTables([]byte(doc))
	require.NoError(t, err)

	price, ok := tables.BasePrice(testModel, testStorage, domain.RankExcel)
	require.True(t, ok)
	assert.Equal(t, 60000, price)

	amount, ok := tables.Buyback().Deduction(testModel, testStorage, DeductBattery79)
	require.True(t, ok)
	assert.Equal(t, 3000, amount)

	amount, ok = tables.Resale().Deduction(testModel, testStorage, ResaleNWCross)
	require.True(t, ok)
	assert.Equal(t, 9000, amount)
}

func TestNewTables_RejectsBadRows(t *testing.T) {
	t.Parallel()

	_, err := NewTables(nil, []DeductionRule{{Model: "m", Storage: "s", Type: ResaleNWCross, Amount: 1}}, nil)
	require.ErrorContains(t, err, "unknown deduction type")

	_, err = NewTables(nil, []DeductionRule{{Model: "m", Storage: "s", Type: DeductNWNG, Amount: -1}}, nil)
	require.ErrorContains(t, err, "negative amount")

	_, err = NewTables([]BasePrice{{Model: "m", Storage: "s", Rank: "新品", Price: 1}}, nil, nil)
	require.ErrorContains(t, err, "unknown rank")
}

func TestNilTables(t *testing.T) {
	t.Parallel()

	var tables *Tables
	_, ok := tables.BasePrice(testModel, testStorage, domain.RankExcel)
	assert.False(t, ok)
	assert.Zero(t, Evaluate(scenarioItem().Condition, tables.Buyback(), testModel, testStorage))
}
