package core

// Percent is floor(done*100/total). An empty transfer is complete.
func Percent(done, total int64) int {
	if total <= 0 {
		return 100
	}
	if done >= total {
		return 100
	}
	if done <= 0 {
		return 0
	}
	return int(done * 100 / total)
}

type tracker struct {
	id        string
	name      string
	direction Direction
	total     int64
	done      int64
	last      int
	emit      func(Event)
}

func newTracker(id, name string, direction Direction, total int64, emit func(Event)) *tracker {
	return &tracker{
		id:        id,
		name:      name,
		direction: direction,
		total:     total,
		last:      -1,
		emit:      emit,
	}
}

// add records one chunk and reports progress after it.
func (t *tracker) add(n int) {
	t.done += int64(n)
	t.report(Percent(t.done, t.total))
}

// finish forces the final value to 100 unless it was already reported.
func (t *tracker) finish() {
	if t.last < 100 {
		t.report(100)
	}
}

func (t *tracker) report(p int) {
	if p < t.last {
		p = t.last
	}
	t.last = p

	t.emit(FileProgress{
		ID:        t.id,
		FileName:  t.name,
		Direction: t.direction,
		Percent:   p,
		Bytes:     t.done,
		Total:     t.total,
	})
}

func (t *tracker) failed(err error) {
	t.emit(TransferFailed{
		ID:        t.id,
		FileName:  t.name,
		Direction: t.direction,
		Bytes:     t.done,
		Err:       err,
	})
}
