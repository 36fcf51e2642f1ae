package shop

import (
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/xenking/shopledger/internal/shop"

type metrics struct {
	created   metric.Int64Counter
	validated metric.Int64Counter
	cancelled metric.Int64Counter
	skipped   metric.Int64Counter
	units     metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	var (
		m   metrics
		err error
	)
	if m.created, err = meter.Int64Counter("shop.orders.created",
		metric.WithDescription("Orders opened"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.created")
	}
	if m.validated, err = meter.Int64Counter("shop.orders.validated",
		metric.WithDescription("Orders validated"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.validated")
	}
	if m.cancelled, err = meter.Int64Counter("shop.orders.cancelled",
		metric.WithDescription("Orders cancelled, by previous status"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.cancelled")
	}
	if m.skipped, err = meter.Int64Counter("shop.stock.restore_skipped",
		metric.WithDescription("Cancelled lines whose product no longer exists"),
	); err != nil {
		return nil, errors.Wrap(err, "stock.restore_skipped")
	}
	if m.units, err = meter.Int64Counter("shop.stock.units_sold",
		metric.WithDescription("Units deducted by validation"),
		metric.WithUnit("{unit}"),
	); err != nil {
		return nil, errors.Wrap(err, "stock.units_sold")
	}
	return &m, nil
}
