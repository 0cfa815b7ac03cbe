package cds

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/joshuapare/cdskit/internal/metrics"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRegisterer publishes store metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		if reg != nil {
			s.metrics = metrics.New(reg)
		}
	}
}

// WithApps sets the directory consulted by Delete. Without one, no owner is
// considered active.
func WithApps(apps AppDirectory) Option {
	return func(s *Store) { s.apps = apps }
}
