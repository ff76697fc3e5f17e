package allocation_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-marketplace/internal/allocation"
	"github.com/noah-isme/backend-marketplace/internal/money"
	"github.com/noah-isme/backend-marketplace/internal/order"
	"github.com/noah-isme/backend-marketplace/internal/seller"
)

func newSeller(t seller.Type) *seller.Seller {
	return &seller.Seller{ID: uuid.New(), Status: seller.StatusActive, Type: t, PlatformFeePercent: seller.DefaultPlatformFeePercent}
}

func b2bSeller(factor string) *seller.Seller {
	s := newSeller(seller.TypeB2BWholesale)
	f := money.MustFromString(factor)
	s.Logistics = &seller.LogisticsConfig{CustomShippingMethods: seller.CustomShippingMethods{B2BDiscountFactor: &f}}
	return s
}

func line(s *seller.Seller, gross string, qty int32, weightKG string) order.Line {
	return order.Line{
		ID:         uuid.New(),
		Seller:     s,
		Quantity:   qty,
		TotalGross: money.MustFromString(gross),
		WeightKG:   money.MustFromString(weightKG),
	}
}

func TestGroupLinesBySeller(t *testing.T) {
	a := newSeller(seller.TypeB2CRetail)
	b := newSeller(seller.TypeB2CRetail)
	lines := []order.Line{
		line(a, "10.00", 1, "0"),
		line(b, "20.00", 2, "0"),
		line(a, "5.00", 1, "0"),
		line(nil, "7.00", 1, "0"),
	}
	groups := allocation.GroupLinesBySeller(lines)
	require.Len(t, groups, 3)
	require.Len(t, groups[a.ID].Lines, 2)
	require.Len(t, groups[b.ID].Lines, 1)
	require.Len(t, groups[uuid.Nil].Lines, 1)

	// Input order is preserved within each group.
	require.True(t, groups[a.ID].Lines[0].TotalGross.Equal(money.MustFromString("10.00")))
	require.True(t, groups[a.ID].Lines[1].TotalGross.Equal(money.MustFromString("5.00")))

	// Every input line lands in exactly one group.
	total := 0
	for _, g := range groups {
		total += len(g.Lines)
	}
	require.Equal(t, len(lines), total)
}

func TestGroupLinesBySellerProductFallback(t *testing.T) {
	owner := newSeller(seller.TypeB2CRetail)
	l := order.Line{ID: uuid.New(), Product: &order.Product{ID: uuid.New(), Seller: owner}, TotalGross: money.MustFromString("9.99")}
	groups := allocation.GroupLinesBySeller([]order.Line{l})
	require.Len(t, groups, 1)
	require.Equal(t, owner, groups[owner.ID].Seller)
}

func TestShippingCostProportionalSumsToTotal(t *testing.T) {
	a := newSeller(seller.TypeB2CRetail)
	b := newSeller(seller.TypeB2CRetail)
	c := newSeller(seller.TypeHybrid)
	groups := allocation.GroupLinesBySeller([]order.Line{
		line(a, "30.00", 1, "0"),
		line(b, "50.00", 1, "0"),
		line(c, "20.00", 1, "0"),
	})
	total := money.MustFromString("10.00")
	result, err := allocation.ShippingCost(groups, total, allocation.MethodProportional)
	require.NoError(t, err)
	require.Len(t, result, 3)
	require.True(t, result[a.ID].Equal(money.MustFromString("3.00")), "got %s", result[a.ID])
	require.True(t, result[b.ID].Equal(money.MustFromString("5.00")), "got %s", result[b.ID])
	require.True(t, result[c.ID].Equal(money.MustFromString("2.00")), "got %s", result[c.ID])

	diff := result.Total().Sub(total).Abs()
	require.True(t, diff.LessThanOrEqual(money.MustFromString("0.01")), "sum off by %s", diff)
}

func TestShippingCostEqualWithB2BFactor(t *testing.T) {
	// Two sellers, $10 split equally; the B2B seller's 0.9 factor shrinks its
	// share to $4.50, so the sum lands at $9.50 rather than $10.00.
	retail := newSeller(seller.TypeB2CRetail)
	wholesale := b2bSeller("0.9")
	groups := allocation.GroupLinesBySeller([]order.Line{
		line(retail, "50.00", 1, "0"),
		line(wholesale, "50.00", 1, "0"),
	})
	result, err := allocation.ShippingCost(groups, money.MustFromString("10.00"), allocation.MethodEqual)
	require.NoError(t, err)
	require.True(t, result[retail.ID].Equal(money.MustFromString("5.00")), "got %s", result[retail.ID])
	require.True(t, result[wholesale.ID].Equal(money.MustFromString("4.50")), "got %s", result[wholesale.ID])
	require.True(t, result.Total().Equal(money.MustFromString("9.50")), "got %s", result.Total())
}

func TestShippingCostWeight(t *testing.T) {
	a := newSeller(seller.TypeB2CRetail)
	b := newSeller(seller.TypeB2CRetail)
	groups := allocation.GroupLinesBySeller([]order.Line{
		line(a, "10.00", 2, "1.5"), // 3.0 kg
		line(b, "10.00", 1, "1.0"), // 1.0 kg
	})
	result, err := allocation.ShippingCost(groups, money.MustFromString("8.00"), allocation.MethodWeight)
	require.NoError(t, err)
	require.True(t, result[a.ID].Equal(money.MustFromString("6.00")), "got %s", result[a.ID])
	require.True(t, result[b.ID].Equal(money.MustFromString("2.00")), "got %s", result[b.ID])
}

func TestShippingCostWeightZeroFallsBackToEqualWithoutFactor(t *testing.T) {
	retail := newSeller(seller.TypeB2CRetail)
	wholesale := b2bSeller("0.9")
	groups := allocation.GroupLinesBySeller([]order.Line{
		line(retail, "10.00", 1, "0"),
		line(wholesale, "10.00", 1, "0"),
	})
	result, err := allocation.ShippingCost(groups, money.MustFromString("10.00"), allocation.MethodWeight)
	require.NoError(t, err)
	// The zero-weight fallback is a plain equal split: no B2B adjustment.
	require.True(t, result[wholesale.ID].Equal(money.MustFromString("5.00")), "got %s", result[wholesale.ID])
	require.True(t, result.Total().Equal(money.MustFromString("10.00")))
}

func TestShippingCostProportionalZeroTotalKeepsFactor(t *testing.T) {
	retail := newSeller(seller.TypeB2CRetail)
	wholesale := b2bSeller("0.9")
	groups := allocation.GroupLinesBySeller([]order.Line{
		line(retail, "0", 1, "0"),
		line(wholesale, "0", 1, "0"),
	})
	result, err := allocation.ShippingCost(groups, money.MustFromString("10.00"), allocation.MethodProportional)
	require.NoError(t, err)
	// The zero-subtotal fallback still applies the B2B adjustment.
	require.True(t, result[wholesale.ID].Equal(money.MustFromString("4.50")), "got %s", result[wholesale.ID])
	require.True(t, result[retail.ID].Equal(money.MustFromString("5.00")), "got %s", result[retail.ID])
}

func TestShippingCostUnknownMethod(t *testing.T) {
	groups := allocation.GroupLinesBySeller([]order.Line{line(newSeller(seller.TypeB2CRetail), "10.00", 1, "0")})
	_, err := allocation.ShippingCost(groups, money.MustFromString("10.00"), allocation.Method("volumetric"))
	require.ErrorIs(t, err, allocation.ErrUnknownMethod)
}

func TestShippingCostEmptyGrouping(t *testing.T) {
	result, err := allocation.ShippingCost(allocation.Grouping{}, money.MustFromString("10.00"), allocation.MethodEqual)
	require.NoError(t, err)
	require.Empty(t, result)
}

func TestDiscountProportional(t *testing.T) {
	a := newSeller(seller.TypeB2CRetail)
	b := newSeller(seller.TypeB2CRetail)
	groups := allocation.GroupLinesBySeller([]order.Line{
		line(a, "50.00", 1, "0"),
		line(b, "50.00", 1, "0"),
	})
	result, err := allocation.Discount(groups, money.MustFromString("10.00"), allocation.MethodProportional)
	require.NoError(t, err)
	require.True(t, result[a.ID].Equal(money.MustFromString("5.00")))
	require.True(t, result[b.ID].Equal(money.MustFromString("5.00")))
}

func TestDiscountNeverAppliesB2BFactor(t *testing.T) {
	retail := newSeller(seller.TypeB2CRetail)
	wholesale := b2bSeller("0.9")
	groups := allocation.GroupLinesBySeller([]order.Line{
		line(retail, "50.00", 1, "0"),
		line(wholesale, "50.00", 1, "0"),
	})
	for _, method := range []allocation.Method{allocation.MethodEqual, allocation.MethodProportional} {
		result, err := allocation.Discount(groups, money.MustFromString("10.00"), method)
		require.NoError(t, err)
		require.True(t, result[wholesale.ID].Equal(money.MustFromString("5.00")), "method %s got %s", method, result[wholesale.ID])
		require.True(t, result.Total().Equal(money.MustFromString("10.00")), "method %s", method)
	}
}

func TestDiscountEqualSplitWithRounding(t *testing.T) {
	sellers := []*seller.Seller{
		newSeller(seller.TypeB2CRetail),
		newSeller(seller.TypeB2CRetail),
		newSeller(seller.TypeB2CRetail),
	}
	lines := make([]order.Line, 0, len(sellers))
	for _, s := range sellers {
		lines = append(lines, line(s, "10.00", 1, "0"))
	}
	groups := allocation.GroupLinesBySeller(lines)
	total := money.MustFromString("10.00")
	result, err := allocation.Discount(groups, total, allocation.MethodEqual)
	require.NoError(t, err)

	// 10 / 3 does not divide evenly; the allocated sum must stay within
	// one cent per seller of the requested total.
	tolerance := decimal.New(int64(len(sellers)), -2)
	diff := result.Total().Sub(total).Abs()
	require.True(t, diff.LessThanOrEqual(tolerance), "sum off by %s", diff)
}

func TestDiscountWeightRejected(t *testing.T) {
	groups := allocation.GroupLinesBySeller([]order.Line{line(newSeller(seller.TypeB2CRetail), "10.00", 1, "1")})
	_, err := allocation.Discount(groups, money.MustFromString("5.00"), allocation.MethodWeight)
	require.ErrorIs(t, err, allocation.ErrUnknownMethod)
}
