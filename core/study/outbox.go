package study

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/BlackishOne/StudySync/core"
)

type syncOp uint8

const (
	opUpsert syncOp = iota
	opDelete
)

type entityKind string

const (
	kindCourse entityKind = "course"
	kindTask   entityKind = "task"
	kindNote   entityKind = "note"
	kindHabit  entityKind = "habit"
)

// intent is one outbound mirror write: the operation plus a snapshot of the
// entity as it was at mutation time. Snapshotting decouples the worker from
// later local edits of the same record.
type intent struct {
	op   syncOp
	kind entityKind
	id   string

	course Course
	task   Task
	note   CourseNote
	habit  Habit
}

func upsertCourse(c Course) intent {
	return intent{op: opUpsert, kind: kindCourse, id: c.ID, course: c}
}

func deleteCourse(id string) intent {
	return intent{op: opDelete, kind: kindCourse, id: id}
}

func upsertTask(t Task) intent {
	return intent{op: opUpsert, kind: kindTask, id: t.ID, task: t}
}

func deleteTask(id string) intent {
	return intent{op: opDelete, kind: kindTask, id: id}
}

func upsertNote(n CourseNote) intent {
	return intent{op: opUpsert, kind: kindNote, id: n.ID, note: n}
}

func deleteNote(id string) intent {
	return intent{op: opDelete, kind: kindNote, id: id}
}

func upsertHabit(h Habit) intent {
	return intent{op: opUpsert, kind: kindHabit, id: h.ID, habit: h}
}

func deleteHabit(id string) intent {
	return intent{op: opDelete, kind: kindHabit, id: id}
}

// outbox decouples "local mutation succeeded" from "remote mirror attempted":
// mutations enqueue intents without blocking, a single worker drains them in
// order with retry/backoff. Single worker also rules out the out-of-order
// completion of two close-together writes to the same entity.
type outbox struct {
	queue       chan intent
	syncer      Syncer
	log         core.Logger
	maxAttempts int
	wg          sync.WaitGroup

	// sleep is swappable in tests
	sleep func(time.Duration)
}

func newOutbox(syncer Syncer, logger core.Logger, queueSize, maxAttempts int) *outbox {
	if queueSize <= 0 {
		queueSize = 256
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &outbox{
		queue:       make(chan intent, queueSize),
		syncer:      syncer,
		log:         logger,
		maxAttempts: maxAttempts,
		sleep:       time.Sleep,
	}
}

// enqueue never blocks a mutation: when the queue is full the intent is
// dropped with a warning. The mirror is best-effort; the next reconciliation
// or a manual full push recovers.
func (o *outbox) enqueue(it intent) {
	if o.syncer == nil {
		return
	}
	select {
	case o.queue <- it:
	default:
		o.log.Warn("sync queue full, dropping intent", map[string]interface{}{
			"kind": string(it.kind),
			"id":   it.id,
		})
	}
}

func (o *outbox) start(ctx context.Context) {
	if o.syncer == nil {
		return
	}
	o.wg.Add(1)
	go o.run(ctx)
}

func (o *outbox) wait() {
	o.wg.Wait()
}

func (o *outbox) run(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			o.drain()
			return
		case it := <-o.queue:
			o.apply(ctx, it)
		}
	}
}

// drain gives pending intents one last single attempt on shutdown.
func (o *outbox) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case it := <-o.queue:
			if err := o.dispatch(ctx, it); err != nil && errors.Cause(err) != core.ErrNoIdentity {
				o.log.Warn("dropping unsynced intent on shutdown", err, map[string]interface{}{
					"kind": string(it.kind),
					"id":   it.id,
				})
			}
		default:
			return
		}
	}
}

// apply retries with linear backoff (attempt x 100ms). Failure after the last
// attempt is logged and the intent is dropped; it never rolls back local state.
func (o *outbox) apply(ctx context.Context, it intent) {
	var err error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		err = o.dispatch(ctx, it)
		if err == nil || errors.Cause(err) == core.ErrNoIdentity {
			return
		}
		if ctx.Err() != nil {
			return
		}
		o.sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	o.log.Error("remote sync failed", err, map[string]interface{}{
		"kind": string(it.kind),
		"id":   it.id,
	})
}

func (o *outbox) dispatch(ctx context.Context, it intent) error {
	switch it.kind {
	case kindCourse:
		if it.op == opDelete {
			return o.syncer.DeleteCourse(ctx, it.id)
		}
		return o.syncer.UpsertCourse(ctx, it.course)
	case kindTask:
		if it.op == opDelete {
			return o.syncer.DeleteTask(ctx, it.id)
		}
		return o.syncer.UpsertTask(ctx, it.task)
	case kindNote:
		if it.op == opDelete {
			return o.syncer.DeleteNote(ctx, it.id)
		}
		return o.syncer.UpsertNote(ctx, it.note)
	case kindHabit:
		if it.op == opDelete {
			return o.syncer.DeleteHabit(ctx, it.id)
		}
		return o.syncer.UpsertHabit(ctx, it.habit)
	}
	return nil
}
