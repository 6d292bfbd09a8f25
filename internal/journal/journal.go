// Package journal records the placement lifecycle (placed, rescaled,
// evicted, undone, reset) in a sqlite database so sessions can be inspected
// after the fact or live through the debug SQL console.
package journal

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/frameloop"
	"github.com/banshee-data/floorobjects/internal/monitoring"
	"github.com/banshee-data/floorobjects/internal/placement"
	"github.com/banshee-data/floorobjects/internal/timeutil"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var logf = monitoring.Tagged("journal")

// Event is the kind of lifecycle change recorded.
type Event string

const (
	EventPlaced   Event = "placed"
	EventRescaled Event = "rescaled"
	EventEvicted  Event = Event(placement.RemovedEvicted)
	EventUndone   Event = Event(placement.RemovedUndone)
	EventReset    Event = Event(placement.RemovedReset)
)

// Entry is one row of placement_events.
type Entry struct {
	EventID     string          `json:"event_id"`
	PlacementID string          `json:"placement_id"`
	Event       Event           `json:"event"`
	ModelID     catalog.ModelID `json:"model_id"`
	Scale       float64         `json:"scale"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Z           float64         `json:"z"`
	AnchorID    string          `json:"anchor_id"`
	PlaneID     string          `json:"plane_id"`
	FrameSeq    uint64          `json:"frame_seq"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Journal is a placement.Listener that persists every registry change. It
// also observes frames so each row carries the sequence number of the last
// completed frame.
type Journal struct {
	db    *sql.DB
	path  string
	clock timeutil.Clock

	frameSeq atomic.Uint64
	failures atomic.Int64
}

var (
	_ placement.Listener      = (*Journal)(nil)
	_ frameloop.FrameObserver = (*Journal)(nil)
)

// Open opens (creating if needed) the journal at path and applies pending
// migrations. ":memory:" gives a throwaway journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	j := &Journal{db: db, path: path, clock: timeutil.RealClock{}}
	if err := j.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// DB exposes the underlying handle for ad-hoc queries.
func (j *Journal) DB() *sql.DB { return j.db }

// SetClock replaces the clock used to stamp events.
func (j *Journal) SetClock(c timeutil.Clock) { j.clock = c }

// Failures returns how many events could not be written.
func (j *Journal) Failures() int64 { return j.failures.Load() }

func (j *Journal) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(j.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

// migrateUp runs all pending migrations. The migrate instance is not closed
// because that would close the shared database handle.
func (j *Journal) migrateUp() error {
	m, err := j.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version and dirty flag.
func (j *Journal) SchemaVersion() (uint, bool, error) {
	m, err := j.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	logf("[migrate] "+strings.TrimSuffix(format, "\n"), v...)
}

func (migrateLogger) Verbose() bool { return false }

// ObserveFrame implements frameloop.FrameObserver.
func (j *Journal) ObserveFrame(snap *frameloop.FrameSnapshot) {
	j.frameSeq.Store(snap.Seq)
}

// PlacementAdded implements placement.Listener.
func (j *Journal) PlacementAdded(rec *placement.Record) {
	j.record(rec, EventPlaced, rec.ScaleFactor)
}

// PlacementRemoved implements placement.Listener.
func (j *Journal) PlacementRemoved(rec *placement.Record, reason placement.RemovalReason) {
	j.record(rec, Event(reason), rec.ScaleFactor)
}

// PlacementRescaled implements placement.Listener.
func (j *Journal) PlacementRescaled(rec *placement.Record, _, newScale float64) {
	j.record(rec, EventRescaled, newScale)
}

// record writes one row. The position is the anchor's X/Z at the plane's
// current height, whether or not either is tracking.
func (j *Journal) record(rec *placement.Record, ev Event, scale float64) {
	var x, y, z float64
	var anchorID, planeID string
	if rec.Anchor != nil {
		p := rec.Anchor.Pose()
		x, y, z = p.TX(), p.TY(), p.TZ()
		anchorID = rec.Anchor.ID()
	}
	if rec.Plane != nil {
		y = rec.Plane.CenterPose().TY()
		planeID = rec.Plane.ID()
	}

	_, err := j.db.Exec(`
		INSERT INTO placement_events (
			event_id, placement_id, event, model_id, scale,
			x, y, z, anchor_id, plane_id, frame_seq, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), rec.ID, string(ev), string(rec.ModelID), scale,
		x, y, z, anchorID, planeID, int64(j.frameSeq.Load()), j.clock.Now().UnixNano(),
	)
	if err != nil {
		if n := j.failures.Add(1); n == 1 || n%100 == 0 {
			logf("failed to record %s for %s (%d failures): %v", ev, rec.ID, n, err)
		}
	}
}

const selectEntries = `
	SELECT event_id, placement_id, event, model_id, scale,
	       x, y, z, anchor_id, plane_id, frame_seq, created_at_ns
	FROM placement_events`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var ev, model string
		var seq, createdNs int64
		if err := rows.Scan(&e.EventID, &e.PlacementID, &ev, &model, &e.Scale,
			&e.X, &e.Y, &e.Z, &e.AnchorID, &e.PlaneID, &seq, &createdNs); err != nil {
			return nil, fmt.Errorf("scan placement event: %w", err)
		}
		e.Event = Event(ev)
		e.ModelID = catalog.ModelID(model)
		e.FrameSeq = uint64(seq)
		e.CreatedAt = time.Unix(0, createdNs)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Events returns the history of one placement, oldest first.
func (j *Journal) Events(placementID string) ([]Entry, error) {
	rows, err := j.db.Query(selectEntries+`
		WHERE placement_id = ?
		ORDER BY created_at_ns ASC, rowid ASC`, placementID)
	if err != nil {
		return nil, fmt.Errorf("query events for %s: %w", placementID, err)
	}
	return scanEntries(rows)
}

// RecentEvents returns up to limit events, newest first.
func (j *Journal) RecentEvents(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.Query(selectEntries+`
		ORDER BY created_at_ns DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	return scanEntries(rows)
}

// CountByEvent returns the number of rows per event kind.
func (j *Journal) CountByEvent() (map[Event]int, error) {
	rows, err := j.db.Query(`SELECT event, COUNT(*) FROM placement_events GROUP BY event`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()
	counts := make(map[Event]int)
	for rows.Next() {
		var ev string
		var n int
		if err := rows.Scan(&ev, &n); err != nil {
			return nil, err
		}
		counts[Event(ev)] = n
	}
	return counts, rows.Err()
}
