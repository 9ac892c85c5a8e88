package detector

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/darktohka/knockd/pkg/config"
	"github.com/darktohka/knockd/pkg/executor"
	"github.com/darktohka/knockd/pkg/log"
	"github.com/darktohka/knockd/pkg/metrics"
)

// rule is the detector's resolved view of a configured knock.
type rule struct {
	name       string
	sequence   []uint16
	activate   string
	deactivate string
	lifetime   time.Duration
}

// Detector tracks per-client knock progress against the configured rules and
// drives activation and deactivation commands. Two goroutines touch its
// state: the ingest goroutine calling Observe and the housekeeping worker
// spawned by Start.
type Detector struct {
	inactivity time.Duration
	exec       executor.Executor
	logger     zerolog.Logger

	// Immutable after construction.
	watched map[uint16]struct{}
	rules   map[string]*rule
	order   []string
	maxSeq  int

	// stateMu guards progress and lastSeen; a client key is present in one
	// iff it is present in the other.
	stateMu  sync.Mutex
	progress map[string][]uint16
	lastSeen map[string]time.Time

	// activeMu guards active: client -> rule name -> activation time. Only
	// rules with a deactivate command ever appear here.
	activeMu sync.Mutex
	active   map[string]map[string]time.Time

	// kick wakes the housekeeping worker after an ingest event so it can
	// recompute its next deadline.
	kick      chan struct{}
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds a detector from a validated configuration. Rules are matched
// longest sequence first, ties broken by name, so overlapping rules fire
// deterministically.
func New(cfg *config.Config, exec executor.Executor) *Detector {
	watched := make(map[uint16]struct{})
	rules := make(map[string]*rule, len(cfg.Rules))
	order := make([]string, 0, len(cfg.Rules))
	maxSeq := 0

	for i := range cfg.Rules {
		r := &cfg.Rules[i]
		rules[r.Name] = &rule{
			name:       r.Name,
			sequence:   append([]uint16(nil), r.Sequence...),
			activate:   r.Activate,
			deactivate: r.Deactivate,
			lifetime:   r.Lifetime(),
		}
		order = append(order, r.Name)

		for _, port := range r.Sequence {
			watched[port] = struct{}{}
		}
		if len(r.Sequence) > maxSeq {
			maxSeq = len(r.Sequence)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := rules[order[i]], rules[order[j]]
		if len(a.sequence) != len(b.sequence) {
			return len(a.sequence) > len(b.sequence)
		}
		return a.name < b.name
	})

	return &Detector{
		inactivity: cfg.InactivityTimeout(),
		exec:       exec,
		logger:     log.WithComponent("detector"),
		watched:    watched,
		rules:      rules,
		order:      order,
		maxSeq:     maxSeq,
		progress:   make(map[string][]uint16),
		lastSeen:   make(map[string]time.Time),
		active:     make(map[string]map[string]time.Time),
		kick:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
}

// Observe ingests one SYN event. Ports outside every configured sequence are
// discarded without touching state. Events for one client must arrive from a
// single goroutine.
func (d *Detector) Observe(clientIP string, port uint16) {
	if _, ok := d.watched[port]; !ok {
		return
	}

	d.logger.Info().
		Str("client_ip", clientIP).
		Uint16("port", port).
		Msg("SYN on watched port")
	metrics.WatchedSYNsTotal.Inc()

	d.stateMu.Lock()
	list := append(d.progress[clientIP], port)
	// Only the last maxSeq ports can ever complete a sequence.
	if len(list) > d.maxSeq {
		list = list[len(list)-d.maxSeq:]
	}
	d.progress[clientIP] = list
	d.lastSeen[clientIP] = time.Now()
	metrics.TrackedClients.Set(float64(len(d.progress)))
	d.stateMu.Unlock()

	d.matchSequence(clientIP)

	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// matchSequence tests the client's progress against every rule and fires the
// first whose sequence is a suffix of it. Progress is dropped before the
// activation command runs; executor failures are logged and absorbed.
func (d *Detector) matchSequence(clientIP string) bool {
	var matched *rule

	d.stateMu.Lock()
	list := d.progress[clientIP]
	for _, name := range d.order {
		r := d.rules[name]
		if endsWith(list, r.sequence) {
			matched = r
			delete(d.progress, clientIP)
			delete(d.lastSeen, clientIP)
			metrics.TrackedClients.Set(float64(len(d.progress)))
			break
		}
	}
	d.stateMu.Unlock()

	if matched == nil {
		return false
	}

	logger := d.logger.With().
		Str("client_ip", clientIP).
		Str("rule", matched.name).
		Logger()
	logger.Info().Msg("knock sequence matched")
	metrics.MatchesTotal.WithLabelValues(matched.name).Inc()

	command := config.ResolveCommand(matched.activate, clientIP)
	if err := d.exec.Execute(command); err != nil {
		logger.Error().Err(err).Str("command", command).Msg("activation command failed")
		metrics.CommandFailuresTotal.WithLabelValues("activate").Inc()
	} else {
		logger.Info().Str("command", command).Msg("activation command executed")
	}

	if matched.deactivate != "" {
		d.activeMu.Lock()
		grants := d.active[clientIP]
		if grants == nil {
			grants = make(map[string]time.Time)
			d.active[clientIP] = grants
		}
		grants[matched.name] = time.Now()
		metrics.ActiveGrants.Set(float64(d.grantCountLocked()))
		d.activeMu.Unlock()
	}
	return true
}

// grantCountLocked counts active (client, rule) pairs. Caller holds activeMu.
func (d *Detector) grantCountLocked() int {
	n := 0
	for _, grants := range d.active {
		n += len(grants)
	}
	return n
}

// endsWith reports whether list ends with suffix.
func endsWith(list, suffix []uint16) bool {
	if len(suffix) == 0 || len(list) < len(suffix) {
		return false
	}
	offset := len(list) - len(suffix)
	for i, port := range suffix {
		if list[offset+i] != port {
			return false
		}
	}
	return true
}

// Start spawns the housekeeping worker. Call at most once per instance.
func (d *Detector) Start() {
	d.startOnce.Do(func() {
		go d.housekeeping()
	})
}

// Stop terminates the housekeeping worker. In-flight commands are not
// interrupted.
func (d *Detector) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
}

// housekeeping expires idle partial sequences and elapsed activations. It
// sleeps until the earliest pending deadline or until Observe signals fresh
// state, whichever comes first.
func (d *Detector) housekeeping() {
	d.logger.Info().Msg("housekeeping worker started")

	for {
		next, ok := d.sweep(time.Now())

		var wake <-chan time.Time
		var timer *time.Timer
		if ok {
			timer = time.NewTimer(next)
			wake = timer.C
		}

		select {
		case <-d.stopCh:
			if timer != nil {
				timer.Stop()
			}
			d.logger.Info().Msg("housekeeping worker stopped")
			return
		case <-d.kick:
		case <-wake:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// sweep runs one housekeeping pass: the inactivity sweep first, then the
// lifetime sweep, so a client removed by a match is never expired twice in
// one iteration. It returns the time until the earliest remaining deadline,
// or ok=false when nothing is pending.
func (d *Detector) sweep(now time.Time) (time.Duration, bool) {
	const never = time.Duration(1<<63 - 1)
	next := never

	d.stateMu.Lock()
	var idleClients []string
	for client, seen := range d.lastSeen {
		idle := now.Sub(seen)
		if idle < 0 {
			idle = 0
		}
		if idle >= d.inactivity {
			idleClients = append(idleClients, client)
		} else if remain := d.inactivity - idle; remain < next {
			next = remain
		}
	}
	for _, client := range idleClients {
		delete(d.progress, client)
		delete(d.lastSeen, client)
		d.logger.Debug().Str("client_ip", client).Msg("partial sequence expired")
	}
	if len(idleClients) > 0 {
		metrics.TrackedClients.Set(float64(len(d.progress)))
	}
	d.stateMu.Unlock()

	type expiry struct {
		client      string
		rule        string
		command     string
		activatedAt time.Time
	}
	var due []expiry

	d.activeMu.Lock()
	for client, grants := range d.active {
		for name, activatedAt := range grants {
			r := d.rules[name]
			age := now.Sub(activatedAt)
			if age < 0 {
				age = 0
			}
			if age >= r.lifetime {
				due = append(due, expiry{
					client:      client,
					rule:        name,
					command:     config.ResolveCommand(r.deactivate, client),
					activatedAt: activatedAt,
				})
			} else if remain := r.lifetime - age; remain < next {
				next = remain
			}
		}
	}
	d.activeMu.Unlock()

	for _, e := range due {
		logger := d.logger.With().
			Str("client_ip", e.client).
			Str("rule", e.rule).
			Logger()
		if err := d.exec.Execute(e.command); err != nil {
			logger.Error().Err(err).Str("command", e.command).Msg("deactivation command failed")
			metrics.CommandFailuresTotal.WithLabelValues("deactivate").Inc()
		} else {
			logger.Info().Str("command", e.command).Msg("deactivation command executed")
		}
	}

	// The grant is dropped whether or not the command succeeded; retrying a
	// broken deactivation on every wakeup helps nobody.
	if len(due) > 0 {
		d.activeMu.Lock()
		for _, e := range due {
			grants, ok := d.active[e.client]
			if !ok {
				continue
			}
			// A fresh re-activation during the command run keeps its grant.
			if at, ok := grants[e.rule]; ok && at.Equal(e.activatedAt) {
				delete(grants, e.rule)
			}
			if len(grants) == 0 {
				delete(d.active, e.client)
			}
		}
		metrics.ActiveGrants.Set(float64(d.grantCountLocked()))
		d.activeMu.Unlock()
	}

	if next == never {
		return 0, false
	}
	return next, true
}
