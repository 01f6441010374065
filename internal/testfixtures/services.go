package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/intake-tracker/internal/application"
	"github.com/example/intake-tracker/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// MedicationServiceDeps captures dependencies for constructing a medication
// service.
type MedicationServiceDeps struct {
	Medications persistence.MedicationRepository
	Schedules   persistence.ScheduleRepository
	Logs        persistence.DoseLogRepository
	OnMutate    func()
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewMedicationService builds a medication service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewMedicationService(deps MedicationServiceDeps) *application.MedicationService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewMedicationServiceWithLogger(
		deps.Medications,
		deps.Schedules,
		deps.Logs,
		deps.OnMutate,
		idGen,
		now,
		deps.Logger,
	)
}

// AdherenceServiceDeps captures dependencies for constructing an adherence
// service.
type AdherenceServiceDeps struct {
	Medications persistence.MedicationRepository
	Schedules   persistence.ScheduleRepository
	Logs        persistence.DoseLogRepository
	Overlay     application.LogOverlay
	Indicators  application.IndicatorSource
	CacheTTL    time.Duration
	Now         func() time.Time
}

// NewAdherenceService builds an adherence service using the supplied
// dependencies.
func (f *ServiceFactory) NewAdherenceService(deps AdherenceServiceDeps) *application.AdherenceService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAdherenceServiceWithSource(
		deps.Medications,
		deps.Schedules,
		deps.Logs,
		deps.Overlay,
		deps.Indicators,
		deps.CacheTTL,
		now,
	)
}

// IntakeCoordinatorDeps captures dependencies for constructing an intake
// coordinator. When Store is nil the local dose log repository backs it.
type IntakeCoordinatorDeps struct {
	Schedules   persistence.ScheduleRepository
	Logs        persistence.DoseLogRepository
	Store       application.LogStore
	OnCommit    func()
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewIntakeCoordinator builds an intake coordinator using the supplied
// dependencies.
func (f *ServiceFactory) NewIntakeCoordinator(deps IntakeCoordinatorDeps) *application.IntakeCoordinator {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	store := deps.Store
	if store == nil {
		store = application.NewRepositoryLogStore(deps.Logs)
	}
	return application.NewIntakeCoordinatorWithLogger(
		deps.Schedules,
		deps.Logs,
		store,
		deps.OnCommit,
		idGen,
		now,
		deps.Logger,
	)
}
