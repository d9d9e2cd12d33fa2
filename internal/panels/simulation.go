package panels

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"example.com/backstage/dashboard/internal/inflight"
	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/notify"
	"example.com/backstage/dashboard/internal/simday"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	keyCurrentDay = "current-day"
	keyEvents     = "events"
)

// EventIndex mirrors the simulation log for text search
type EventIndex interface {
	IndexEvents(ctx context.Context, events []models.ProductionEvent) error
	SearchEvents(ctx context.Context, text string) ([]models.ProductionEvent, error)
}

// DayGroup is the history of one calendar day
type DayGroup struct {
	Day    simday.Day               `json:"day"`
	Label  string                   `json:"label"`
	Events []models.ProductionEvent `json:"events"`
}

// SimulationSnapshot is a copy of the simulation panel state
type SimulationSnapshot struct {
	// CurrentDay is the displayed day, zero when the backend value was unusable
	CurrentDay          simday.Day               `json:"current_day"`
	CurrentDayLabel     string                   `json:"current_day_label"`
	HistoricalEvents    []models.ProductionEvent `json:"historical_events"`
	EventsGroupedByDay  []DayGroup               `json:"events_grouped_by_day"`
	EventsForCurrentDay []models.ProductionEvent `json:"events_for_current_day"`
}

// Simulation is the simulator panel: current day, history and day advance
type Simulation struct {
	backend  Backend
	notifier notify.Notifier
	inflight *inflight.Registry
	index    EventIndex

	mu         sync.RWMutex
	currentDay simday.Day
	history    []models.ProductionEvent
	groups     []DayGroup
	today      []models.ProductionEvent
	// advanced holds the inline events of the last advance until a later reload replaces them
	advanced []models.ProductionEvent

	background sync.WaitGroup
}

// NewSimulation creates the panel. index may be nil.
func NewSimulation(backend Backend, notifier notify.Notifier, registry *inflight.Registry, index EventIndex) *Simulation {
	if registry == nil {
		registry = inflight.New()
	}
	return &Simulation{
		backend:  backend,
		notifier: notifier,
		inflight: registry,
		index:    index,
	}
}

// Init loads the current day, then the history
func (s *Simulation) Init(ctx context.Context) error {
	dayErr := s.LoadCurrentDay(ctx)
	historyErr := s.LoadHistory(ctx)
	if dayErr != nil {
		return dayErr
	}
	return historyErr
}

// LoadCurrentDay fetches the last completed day and displays the day after it.
// A value that is not a date leaves the panel without a current day.
func (s *Simulation) LoadCurrentDay(ctx context.Context) error {
	gen := s.inflight.Begin(keyCurrentDay)

	raw, err := s.backend.CurrentDay(ctx)
	if err != nil {
		s.notifier.Failure(err)
		return err
	}
	day, parseErr := simday.Parse(raw)

	s.inflight.Commit(keyCurrentDay, gen, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if parseErr != nil {
			log.Warn().Err(parseErr).Str("value", raw).Msg("backend current day is not a date")
			s.currentDay = simday.Day{}
			s.today = nil
			return
		}
		s.currentDay = day.AddDays(1)
		s.today = filterDay(s.history, s.currentDay)
	})
	return nil
}

// LoadHistory fetches the whole log, regroups it and recomputes the current day's events
func (s *Simulation) LoadHistory(ctx context.Context) error {
	gen := s.inflight.Begin(keyEvents)

	events, err := s.backend.ListEvents(ctx)
	if err != nil {
		s.notifier.Failure(err)
		return err
	}

	applied := s.inflight.Commit(keyEvents, gen, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.history = events
		s.groups = groupByDay(events)
		s.today = filterDay(events, s.currentDay)

		if s.advanced != nil {
			if !reflect.DeepEqual(s.advanced, s.today) {
				log.Warn().
					Str("day", s.currentDay.String()).
					Int("advance_events", len(s.advanced)).
					Int("history_events", len(s.today)).
					Msg("history disagrees with the advance response, keeping history")
			}
			s.advanced = nil
		}
	})
	if !applied {
		log.Debug().Uint64("generation", gen).Msg("discarding superseded history")
		return nil
	}

	if s.index != nil {
		if err := s.index.IndexEvents(ctx, events); err != nil {
			log.Warn().Err(err).Msg("failed to index simulation events")
		}
	}
	return nil
}

// Advance runs one simulated day. The day and events of the response are shown
// at once; the history reload runs in the background (see Settle).
func (s *Simulation) Advance(ctx context.Context) (models.SimulationStep, error) {
	// history reloads started before the advance are stale from here on
	s.inflight.Begin(keyEvents)

	step, err := s.backend.AdvanceSimulation(ctx)
	if err != nil {
		s.notifier.Failure(err)
		return models.SimulationStep{}, err
	}

	gen := s.inflight.Begin(keyCurrentDay)
	s.inflight.Commit(keyCurrentDay, gen, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.currentDay = step.Day.CalendarDay()
		s.today = cloneEvents(step.Events)
		s.advanced = cloneEvents(step.Events)
	})

	bg := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.LoadHistory(bg); err != nil {
			log.Warn().Err(err).Msg("history reload after advance failed")
		}
	}()

	return step, nil
}

// Settle waits for background history reloads to finish
func (s *Simulation) Settle() {
	s.background.Wait()
}

// SearchEvents finds events whose type or detail contain text. Without a
// search index the loaded history is filtered instead.
func (s *Simulation) SearchEvents(ctx context.Context, text string) ([]models.ProductionEvent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []models.ProductionEvent{}, nil
	}

	if s.index != nil {
		events, err := s.index.SearchEvents(ctx, text)
		if err == nil {
			return events, nil
		}
		log.Warn().Err(err).Msg("event search failed, filtering loaded history")
	}

	needle := strings.ToLower(text)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.history, func(e models.ProductionEvent, _ int) bool {
		return strings.Contains(strings.ToLower(e.Detail), needle) ||
			strings.Contains(strings.ToLower(e.Type), needle)
	}), nil
}

// CurrentDay returns the displayed day and whether there is one
func (s *Simulation) CurrentDay() (simday.Day, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentDay, !s.currentDay.IsZero()
}

// EventsOn returns the loaded events of day in arrival order
func (s *Simulation) EventsOn(day simday.Day) []models.ProductionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterDay(s.history, day)
}

// Snapshot returns a copy of the panel state
func (s *Simulation) Snapshot() SimulationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]DayGroup, len(s.groups))
	for i, g := range s.groups {
		groups[i] = DayGroup{
			Day:    g.Day,
			Label:  g.Label,
			Events: cloneEvents(g.Events),
		}
	}

	return SimulationSnapshot{
		CurrentDay:          s.currentDay,
		CurrentDayLabel:     s.currentDay.String(),
		HistoricalEvents:    cloneEvents(s.history),
		EventsGroupedByDay:  groups,
		EventsForCurrentDay: cloneEvents(s.today),
	}
}

// groupByDay keeps the first-seen order of days and the arrival order within each day
func groupByDay(events []models.ProductionEvent) []DayGroup {
	index := map[simday.Day]int{}
	var groups []DayGroup
	for _, e := range events {
		day := e.Day()
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Day: day, Label: day.String()})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	return groups
}

func filterDay(events []models.ProductionEvent, day simday.Day) []models.ProductionEvent {
	if day.IsZero() {
		return nil
	}
	return lo.Filter(events, func(e models.ProductionEvent, _ int) bool {
		return e.Day() == day
	})
}

func cloneEvents(events []models.ProductionEvent) []models.ProductionEvent {
	out := make([]models.ProductionEvent, len(events))
	copy(out, events)
	return out
}
