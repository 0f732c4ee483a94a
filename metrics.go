package nara

import (
	"sync"
	"sync/atomic"
)

// Metrics is the opt-in runtime introspection surface of §12: a lock-free
// tick/poll counter plus a streaming latency-quantile estimator, ported
// from the teacher's psquare.go (the P² algorithm, Jain & Chlamtac 1985).
// Purely diagnostic — nothing in the core consults it.
type Metrics struct {
	ticks     atomic.Uint64
	fastTicks atomic.Uint64
	polls     atomic.Uint64

	mu      sync.Mutex
	latency pSquareQuantile
}

func newMetrics() *Metrics {
	return &Metrics{latency: newPSquareQuantile(0.5)}
}

func (m *Metrics) recordTick(fast bool) {
	m.ticks.Add(1)
	if fast {
		m.fastTicks.Add(1)
	}
}

func (m *Metrics) recordPoll() {
	m.polls.Add(1)
}

// ObserveTaskLatency feeds one task spawn-to-completion duration (in
// seconds) into the quantile estimator. Not called by the core itself —
// intended for instrumented wrappers around Spawn that want latency
// visibility.
func (m *Metrics) ObserveTaskLatency(seconds float64) {
	m.mu.Lock()
	m.latency.observe(seconds)
	m.mu.Unlock()
}

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	Ticks         uint64
	FastTicks     uint64
	Polls         uint64
	MedianLatency float64
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	median := m.latency.value()
	m.mu.Unlock()
	return Snapshot{
		Ticks:         m.ticks.Load(),
		FastTicks:     m.fastTicks.Load(),
		Polls:         m.polls.Load(),
		MedianLatency: median,
	}
}

// pSquareQuantile estimates a single quantile of a data stream in O(1)
// space without storing observations, per the P² algorithm. Not
// thread-safe; callers (Metrics) must synchronize.
type pSquareQuantile struct {
	p          float64
	n          int
	q          [5]float64
	npos       [5]float64
	dnpos      [5]float64
	pos        [5]int
	initBuf    []float64
	haveMarker bool
}

func newPSquareQuantile(p float64) pSquareQuantile {
	return pSquareQuantile{p: p, initBuf: make([]float64, 0, 5)}
}

func (q *pSquareQuantile) observe(x float64) {
	q.n++
	if !q.haveMarker {
		q.initBuf = append(q.initBuf, x)
		if len(q.initBuf) < 5 {
			return
		}
		insertionSort5(q.initBuf)
		for i := 0; i < 5; i++ {
			q.q[i] = q.initBuf[i]
			q.pos[i] = i + 1
		}
		q.npos[0], q.npos[1], q.npos[2], q.npos[3], q.npos[4] = 1, 1+2*q.p, 1+4*q.p, 3+2*q.p, 5
		q.dnpos[0], q.dnpos[1], q.dnpos[2], q.dnpos[3], q.dnpos[4] = 0, q.p/2, q.p, (1+q.p)/2, 1
		q.haveMarker = true
		return
	}

	var k int
	switch {
	case x < q.q[0]:
		q.q[0] = x
		k = 0
	case x >= q.q[4]:
		q.q[4] = x
		k = 3
	default:
		k = 3
		for i := 1; i < 4; i++ {
			if x < q.q[i] {
				k = i - 1
				break
			}
		}
	}
	for i := k + 1; i < 5; i++ {
		q.pos[i]++
	}
	for i := 0; i < 5; i++ {
		q.npos[i] += q.dnpos[i]
	}

	for i := 1; i < 4; i++ {
		d := q.npos[i] - float64(q.pos[i])
		if (d >= 1 && q.pos[i+1]-q.pos[i] > 1) || (d <= -1 && q.pos[i-1]-q.pos[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			qNew := parabolic(q.q[i-1], q.q[i], q.q[i+1], float64(q.pos[i-1]), float64(q.pos[i]), float64(q.pos[i+1]), float64(sign))
			if q.q[i-1] < qNew && qNew < q.q[i+1] {
				q.q[i] = qNew
			} else {
				q.q[i] = linear(q.q[i], q.q[i+sign], float64(q.pos[i]), float64(q.pos[i+sign]), sign)
			}
			q.pos[i] += sign
		}
	}
}

func (q *pSquareQuantile) value() float64 {
	if !q.haveMarker {
		if len(q.initBuf) == 0 {
			return 0
		}
		sorted := append([]float64(nil), q.initBuf...)
		insertionSort5(sorted)
		return sorted[len(sorted)/2]
	}
	return q.q[2]
}

func parabolic(qm, q0, qp, nm, n0, np, sign float64) float64 {
	return q0 + sign/(np-nm)*((n0-nm+sign)*(qp-q0)/(np-n0)+(np-n0-sign)*(q0-qm)/(n0-nm))
}

func linear(q0, q1, n0, n1 float64, sign int) float64 {
	return q0 + float64(sign)*(q1-q0)/(n1-n0)
}

func insertionSort5(s []float64) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}
