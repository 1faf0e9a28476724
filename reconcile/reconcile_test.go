package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/WilsonNous/netunna-rede-splitter-v2/aggregate"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

func TestReconcileEEVDWithinTolerance(t *testing.T) {
	b1 := types.NewPVBucket(types.PV("111111111"))
	b1.AddCents(aggregate.DimBruto, 1000)
	b1.AddCents(aggregate.DimDesconto, 100)
	b1.AddCents(aggregate.DimLiquido, 900)

	b2 := types.NewPVBucket(types.PV("222222222"))
	b2.AddCents(aggregate.DimBruto, 500)
	b2.AddCents(aggregate.DimDesconto, 50)
	b2.AddCents(aggregate.DimLiquido, 450)

	mother := types.MotherTrailer{
		Totals: map[string]types.Cents{
			aggregate.DimBruto:    1500,
			aggregate.DimDesconto: 150,
			aggregate.DimLiquido:  1350,
		},
	}

	v := Reconcile(types.KindEEVD, mother, []*types.PVBucket{b1, b2}, 0)
	assert.True(t, v.OK)
	assert.Len(t, v.Dimensions, 3)
}

func TestReconcileDetectsDivergence(t *testing.T) {
	b := types.NewPVBucket(types.PV("111111111"))
	b.AddCents(aggregate.DimLiquido, 1000)

	mother := types.MotherTrailer{Totals: map[string]types.Cents{aggregate.DimLiquido: 1005}}

	v := Reconcile(types.KindEEVC, mother, []*types.PVBucket{b}, 0)
	assert.False(t, v.OK)
	assert.Equal(t, types.Cents(1005), v.Dimensions[0].Expected)
	assert.Equal(t, types.Cents(1000), v.Dimensions[0].Computed)
}

func TestReconcileWithinNonZeroTolerance(t *testing.T) {
	b := types.NewPVBucket(types.PV("111111111"))
	b.AddCents(aggregate.DimLiquido, 1000)

	mother := types.MotherTrailer{Totals: map[string]types.Cents{aggregate.DimLiquido: 1002}}

	v := Reconcile(types.KindEEVC, mother, []*types.PVBucket{b}, 5)
	assert.True(t, v.OK)
}

func TestReconcileEEFIUsesSignedTotal(t *testing.T) {
	b := types.NewPVBucket(types.PV("111111111"))
	b.AddCents(aggregate.DimCredNorm, 1000)
	b.AddCents(aggregate.DimAntecipacao, 200)
	b.AddCents(aggregate.DimAjusteCred, 50)
	b.AddCents(aggregate.DimAjusteDeb, 30)

	mother := types.MotherTrailer{Totals: map[string]types.Cents{aggregate.DimReconTotal: 1220}}

	v := Reconcile(types.KindEEFI, mother, []*types.PVBucket{b}, 0)
	assert.True(t, v.OK)
}
