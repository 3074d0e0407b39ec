package invoice

import "github.com/josh-kwaku/agency-ledger/internal/domain"

// PricingPolicy turns an order into invoice amounts.
type PricingPolicy interface {
	Price(o *domain.Order) domain.Amounts
}

type PricingFunc func(o *domain.Order) domain.Amounts

func (f PricingFunc) Price(o *domain.Order) domain.Amounts { return f(o) }

// DefaultPricing subtracts both reduction kinds from the price and adds the
// order taxes on top.
var DefaultPricing PricingFunc = func(o *domain.Order) domain.Amounts {
	ht := domain.Quantize(o.Price.Sub(o.Reductions).Sub(o.OtherReductions))
	tax := domain.Quantize(o.Taxes)
	return domain.Amounts{
		HT:  ht,
		Tax: tax,
		TTC: ht.Add(tax),
	}
}
