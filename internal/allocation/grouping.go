package allocation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-marketplace/internal/order"
	"github.com/noah-isme/backend-marketplace/internal/seller"
)

// Group holds the lines attributed to one seller. Seller is nil for the
// sellerless group.
type Group struct {
	Seller *seller.Seller
	Lines  []order.Line
}

// Grouping maps a seller ID to its group. Lines with no resolvable seller are
// collected under uuid.Nil.
type Grouping map[uuid.UUID]Group

// GroupLinesBySeller partitions lines by owning seller. Each line resolves
// its seller through the denormalized reference with a product-ownership
// fallback. Input order is preserved within every group.
func GroupLinesBySeller(lines []order.Line) Grouping {
	grouped := make(Grouping, len(lines))
	for _, line := range lines {
		s := line.ResolveSeller()
		key := uuid.Nil
		if s != nil {
			key = s.ID
		}
		g := grouped[key]
		if g.Seller == nil {
			g.Seller = s
		}
		g.Lines = append(g.Lines, line)
		grouped[key] = g
	}
	return grouped
}

// Subtotal sums the gross total of the group's lines.
func (g Group) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range g.Lines {
		total = total.Add(line.TotalGross)
	}
	return total
}

// Weight sums unit weight times quantity over the group's lines. Lines
// without a recorded weight contribute nothing.
func (g Group) Weight() decimal.Decimal {
	total := decimal.Zero
	for _, line := range g.Lines {
		if line.WeightKG.IsZero() {
			continue
		}
		total = total.Add(line.WeightKG.Mul(decimal.NewFromInt32(line.Quantity)))
	}
	return total
}
