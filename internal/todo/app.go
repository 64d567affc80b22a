package todo

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/jask/tealens/internal/extsync"
	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/metrics"
	"github.com/jask/tealens/internal/route"
	"github.com/jask/tealens/internal/service"
	"github.com/jask/tealens/internal/snapshot"
	"github.com/jask/tealens/internal/store"
	"github.com/jask/tealens/internal/view"
)

// Routes encodes the visibility filter as "#/all", "#/complete" or
// "#/incomplete".
var Routes = route.Enum(Visibilities...)

// Options configures one build of the application. A new set of options is
// applied by swapping in a freshly made app.
type Options struct {
	// Version tags persisted snapshots; snapshots from another version are
	// ignored on start.
	Version string `validate:"required"`
	// Storage opens the snapshot backend; nil disables persistence.
	Storage snapshot.Opener
	// Location is the fragment the visibility filter is mirrored into.
	Location *route.Location `validate:"required"`
	// LogState enables the state logger.
	LogState bool
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// MakeApp returns the application constructor for opts. Invalid options fail
// construction, which leaves a running app in place during a swap.
func MakeApp(opts Options) lifecycle.MakeApp[State, view.Node] {
	return func(*store.Store[State]) (lifecycle.App[State, view.Node], error) {
		if err := validate.Struct(opts); err != nil {
			return lifecycle.App[State, view.Node]{}, fmt.Errorf("todo: options: %w", err)
		}
		log := opts.Logger
		if log == nil {
			log = slog.Default()
		}
		syncOpts := []extsync.Option{extsync.WithLogger(log), extsync.WithMetrics(opts.Metrics)}

		var services []lifecycle.Service[State]
		if opts.Storage != nil {
			services = append(services, snapshot.Service(snapshot.Codec[State]{Version: opts.Version}, opts.Storage, syncOpts...))
		}
		services = append(services, route.Service(VisibilityLens, Routes, opts.Location, syncOpts...))
		if opts.LogState {
			services = append(services, service.StateLogger[State](log))
		}
		return lifecycle.App[State, view.Node]{View: View, Services: services}, nil
	}
}
