package archive

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"statusbar/internal/status"
	"statusbar/internal/storage"
	logx "statusbar/pkg/logx"
)

// Source is the history a pass reads from; *status.Log satisfies it.
type Source interface {
	HistorySince(seq uint64) ([]status.HistoryRecord, uint64)
}

type Options struct {
	Schedule Schedule
	// Session tags every archived row; a random UUID when empty.
	Session  string
	Location *time.Location
	Logger   logx.Logger
}

// Archiver copies new history records into a storage.Store on a schedule.
// Each pass persists records with Seq above the last persisted one.
type Archiver struct {
	src     Source
	store   storage.Store
	log     logx.Logger
	sched   Schedule
	loc     *time.Location
	session string

	// passMu serializes passes so scheduled and manual flushes never
	// persist the same record twice.
	passMu sync.Mutex
	last   uint64
	gaps   uint64

	mu sync.Mutex
	c  *cron.Cron
}

func New(src Source, store storage.Store, opts Options) (*Archiver, error) {
	if src == nil {
		return nil, errors.New("archive: source is required")
	}
	if store == nil {
		return nil, storage.ErrDisabled
	}
	if opts.Schedule.Every <= 0 && opts.Schedule.Cron == "" {
		return nil, errors.New("archive: schedule is required")
	}
	if opts.Session == "" {
		opts.Session = uuid.NewString()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger.IsZero() {
		opts.Logger = logx.Nop()
	}
	return &Archiver{
		src:     src,
		store:   store,
		log:     opts.Logger.Component("archive"),
		sched:   opts.Schedule,
		loc:     opts.Location,
		session: opts.Session,
	}, nil
}

func (a *Archiver) Session() string { return a.session }

// LastSeq is the highest sequence number persisted so far.
func (a *Archiver) LastSeq() uint64 {
	a.passMu.Lock()
	defer a.passMu.Unlock()
	return a.last
}

// Gaps counts records that left history before a pass could persist them.
func (a *Archiver) Gaps() uint64 {
	a.passMu.Lock()
	defer a.passMu.Unlock()
	return a.gaps
}

// Start begins scheduled passes. Calling Start twice is a no-op.
func (a *Archiver) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c != nil {
		return nil
	}
	sched, err := a.sched.cronSchedule()
	if err != nil {
		return err
	}
	c := cron.New(cron.WithParser(cronParser), cron.WithLocation(a.loc))
	c.Schedule(sched, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := a.Flush(ctx); err != nil {
			a.log.Warn("archive pass failed", logx.Err(err))
		}
	}))
	c.Start()
	a.c = c
	a.log.Info("archiver started", logx.String("schedule", a.sched.String()), logx.String("session", a.session))
	return nil
}

// Stop halts scheduling, waits for a running pass, then runs a final Flush.
func (a *Archiver) Stop(ctx context.Context) error {
	a.mu.Lock()
	c := a.c
	a.c = nil
	a.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, err := a.Flush(ctx)
	return err
}

// Flush runs one pass and returns the number of records persisted. On a
// store error nothing is marked persisted, so the next pass retries.
func (a *Archiver) Flush(ctx context.Context) (int, error) {
	a.passMu.Lock()
	defer a.passMu.Unlock()

	records, latest := a.src.HistorySince(a.last)
	if len(records) == 0 {
		if latest > a.last {
			a.noteGap(latest - a.last)
			a.last = latest
		}
		return 0, nil
	}
	if first := records[0].Seq; first > a.last+1 {
		a.noteGap(first - a.last - 1)
	}

	if err := a.store.AppendHistory(ctx, a.session, records); err != nil {
		return 0, err
	}
	a.last = records[len(records)-1].Seq
	a.log.Debug("history archived",
		logx.Int("count", len(records)),
		logx.Uint64("last_seq", a.last),
		logx.Time("oldest", records[0].CreatedAt),
	)
	return len(records), nil
}

func (a *Archiver) noteGap(n uint64) {
	a.gaps += n
	a.log.Warn("history records lost before archiving", logx.Uint64("missing", n), logx.Uint64("after_seq", a.last))
}
