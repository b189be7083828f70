package function

import (
	"context"
	"fmt"
	"log/slog"

	"cryptochat/internal/domain"
	"cryptochat/internal/infra/tracer"
)

// Market is the data source the catalogue is bound to.
type Market interface {
	CurrentPrice(ctx context.Context, ticker string) (string, error)
	MarketCap(ctx context.Context, ticker string) (string, error)
	CirculatingSupply(ctx context.Context, ticker string) (string, error)
	TotalSupply(ctx context.Context, ticker string) (string, error)
	ConvertToFiat(ctx context.Context, ticker string, amount domain.Amount) (string, error)
	ConvertToCrypto(ctx context.Context, ticker string, amount domain.Amount) (string, error)
	HighestGainers(ctx context.Context) (string, error)
	TrendingCryptos(ctx context.Context) (string, error)
	PriceHistory(ctx context.Context, ticker, period string) domain.PriceSeries
}

// Chart draws the price history image.
type Chart interface {
	RenderPriceHistory(ctx context.Context, ticker, period string) (domain.ImageOutput, error)
}

// callable adapts a plain Go func to domain.Function.
type callable struct {
	spec domain.FunctionSpec
	run  func(ctx context.Context, args domain.Args) (domain.FunctionOutput, error)
}

func (c callable) Spec() domain.FunctionSpec { return c.spec }

func (c callable) Invoke(ctx context.Context, args domain.Args) (domain.FunctionOutput, error) {
	return tracer.Traced(ctx, "function."+c.spec.Name, func(ctx context.Context) (domain.FunctionOutput, error) {
		return c.run(ctx, args)
	},
		tracer.StringAttr("function.name", c.spec.Name),
		tracer.StringAttr("function.ticker", args.Ticker),
	)
}

func textFunc(name string, fn func(ctx context.Context, args domain.Args) (string, error)) callable {
	spec, ok := SpecByName(name)
	if !ok {
		panic(fmt.Sprintf("function: no spec for %q", name))
	}
	return callable{spec: spec, run: func(ctx context.Context, args domain.Args) (domain.FunctionOutput, error) {
		s, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		return domain.TextOutput{Value: s}, nil
	}}
}

// Catalogue binds every name in Specs to its implementation.
func Catalogue(m Market, c Chart) []domain.Function {
	byTicker := func(f func(context.Context, string) (string, error)) func(context.Context, domain.Args) (string, error) {
		return func(ctx context.Context, a domain.Args) (string, error) { return f(ctx, a.Ticker) }
	}
	byAmount := func(f func(context.Context, string, domain.Amount) (string, error)) func(context.Context, domain.Args) (string, error) {
		return func(ctx context.Context, a domain.Args) (string, error) { return f(ctx, a.Ticker, a.Amount) }
	}
	noArgs := func(f func(context.Context) (string, error)) func(context.Context, domain.Args) (string, error) {
		return func(ctx context.Context, _ domain.Args) (string, error) { return f(ctx) }
	}

	history, _ := SpecByName(GetPriceHistory)
	plot, _ := SpecByName(PlotPriceHistory)

	return []domain.Function{
		textFunc(GetCurrentPrice, byTicker(m.CurrentPrice)),
		textFunc(ConvertToFiat, byAmount(m.ConvertToFiat)),
		textFunc(ConvertToCrypto, byAmount(m.ConvertToCrypto)),
		textFunc(GetMarketCap, byTicker(m.MarketCap)),
		textFunc(GetCirculatingSupply, byTicker(m.CirculatingSupply)),
		textFunc(GetTotalSupply, byTicker(m.TotalSupply)),
		textFunc(GetHighestGainers, noArgs(m.HighestGainers)),
		textFunc(GetTrendingCryptos, noArgs(m.TrendingCryptos)),
		callable{spec: history, run: func(ctx context.Context, a domain.Args) (domain.FunctionOutput, error) {
			return domain.TableOutput{Series: m.PriceHistory(ctx, a.Ticker, a.Period)}, nil
		}},
		callable{spec: plot, run: func(ctx context.Context, a domain.Args) (domain.FunctionOutput, error) {
			img, err := c.RenderPriceHistory(ctx, a.Ticker, a.Period)
			if err != nil {
				return nil, err
			}
			return img, nil
		}},
	}
}

// NewDefaultRegistry registers the full catalogue and verifies it.
func NewDefaultRegistry(m Market, c Chart, logger *slog.Logger) (*Registry, error) {
	reg := NewRegistry(Specs, logger)
	for _, f := range Catalogue(m, c) {
		if err := reg.Register(f); err != nil {
			return nil, err
		}
	}
	if err := reg.Verify(); err != nil {
		return nil, err
	}
	return reg, nil
}
