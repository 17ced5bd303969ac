package exercise

import "github.com/ayusman/gymbro/internal/pose"

// activeAngle picks the angle to act on from a bilateral pair: the mean when
// both sides are measurable, otherwise whichever side is, otherwise 0.
func activeAngle(left, right float64) float64 {
	switch {
	case left > 0 && right > 0:
		return (left + right) / 2
	case left > 0:
		return left
	default:
		return right
	}
}

// repCounter is the debounced dual-threshold state machine. A repetition is
// counted on each committed down->up transition.
type repCounter struct {
	extended   float64
	contracted float64
	hold       int

	stage         Stage
	count         int
	extendedRun   int
	contractedRun int
}

func newRepCounter(cfg Config) repCounter {
	return repCounter{
		extended:   cfg.ExtendedThreshold,
		contracted: cfg.ContractedThreshold,
		hold:       cfg.HoldFrames,
		stage:      StageUp,
	}
}

// observe feeds one active angle and reports whether a repetition completed.
func (c *repCounter) observe(theta float64) bool {
	switch {
	case theta > c.extended:
		c.extendedRun++
		c.contractedRun = 0
		if c.stage == StageDown && c.extendedRun > c.hold {
			c.stage = StageUp
			c.count++
			c.extendedRun = 0
			return true
		}
	case theta < c.contracted:
		c.contractedRun++
		c.extendedRun = 0
		if c.stage == StageUp && c.contractedRun > c.hold {
			c.stage = StageDown
			c.contractedRun = 0
		}
	default:
		c.extendedRun = 0
		c.contractedRun = 0
	}
	return false
}

func (c *repCounter) reset() {
	c.stage = StageUp
	c.count = 0
	c.extendedRun = 0
	c.contractedRun = 0
}

// faultLatch surfaces a fault once its predicate has held for more than hold
// consecutive frames and clears it on the first frame where it does not.
type faultLatch struct {
	hold    int
	message string

	run    int
	active bool
}

func (l *faultLatch) observe(holds bool) {
	if !holds {
		l.run = 0
		l.active = false
		return
	}
	l.run++
	if l.run > l.hold {
		l.active = true
	}
}

func (l *faultLatch) current() string {
	if l.active {
		return l.message
	}
	return ""
}

func (l *faultLatch) reset() {
	l.run = 0
	l.active = false
}

// tracker holds the state every analyzer shares.
type tracker struct {
	kind     Kind
	cfg      Config
	keys     []string
	resolver *pose.Resolver
	reps     repCounter
	fault    faultLatch
	last     Result
}

func newTracker(kind Kind, cfg Config, fault string, keys []string) (tracker, error) {
	if err := cfg.Validate(); err != nil {
		return tracker{}, err
	}
	t := tracker{
		kind:     kind,
		cfg:      cfg,
		keys:     keys,
		resolver: pose.NewResolver(cfg.VisibilityThreshold),
		reps:     newRepCounter(cfg),
		fault:    faultLatch{hold: cfg.FaultHoldFrames, message: fault},
	}
	t.last = t.emit(t.zeroAngles())
	return t, nil
}

func (t *tracker) zeroAngles() map[string]float64 {
	angles := make(map[string]float64, len(t.keys))
	for _, k := range t.keys {
		angles[k] = 0
	}
	return angles
}

func (t *tracker) emit(angles map[string]float64) Result {
	t.last = Result{
		Exercise:  t.kind,
		Angles:    angles,
		Stage:     t.reps.stage,
		Counter:   t.reps.count,
		FormFault: t.fault.current(),
	}
	return t.last.Clone()
}

func (t *tracker) skip() Result {
	r := t.last.Clone()
	r.Skipped = true
	return r
}

// Kind returns the exercise handled by the analyzer.
func (t *tracker) Kind() Kind {
	return t.kind
}

// Last returns the most recent emitted result.
func (t *tracker) Last() Result {
	return t.last.Clone()
}

// Reset clears the count, stage, hold counters and fault.
func (t *tracker) Reset() Result {
	t.reps.reset()
	t.fault.reset()
	return t.emit(t.zeroAngles())
}
