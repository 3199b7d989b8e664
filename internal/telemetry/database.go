package telemetry

//
// SQLite event journal
//

import (
	"database/sql"
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ooni/dohrollout/internal/model"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/upper/db/v4"
	"github.com/upper/db/v4/adapter/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// eventsTable is the table containing the journaled events.
const eventsTable = "events"

// JournaledEvent is an event saved into the journal.
type JournaledEvent struct {
	ID        int64     `db:"event_id,omitempty"`
	UUID      string    `db:"event_uuid"`
	SessionID string    `db:"session_id"`
	Time      time.Time `db:"event_time"`
	Category  string    `db:"category"`
	Method    string    `db:"method"`
	Object    string    `db:"object"`
	Value     string    `db:"value"`
	ExtraJSON string    `db:"extra"`
}

// Event converts a JournaledEvent back to an Event.
func (je *JournaledEvent) Event() (*Event, error) {
	ev := &Event{
		Category: je.Category,
		Method:   je.Method,
		Object:   je.Object,
		Value:    je.Value,
	}
	if err := json.Unmarshal([]byte(je.ExtraJSON), &ev.Extra); err != nil {
		return nil, errors.Wrap(err, "parsing extra")
	}
	return ev, nil
}

// RunMigrations runs the database migrations
func RunMigrations(sess db.Session) error {
	sqldb, ok := sess.Driver().(*sql.DB)
	if !ok {
		return errors.New("telemetry: unexpected database driver")
	}
	migrations := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
	_, err := migrate.Exec(sqldb, "sqlite3", migrations, migrate.Up)
	return err
}

// Connect opens the journal at path, creating it if needed, and
// runs the migrations.
func Connect(path string) (db.Session, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "creating database dir")
	}
	sess, err := sqlite.Open(sqlite.ConnectionURL{Database: path})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := RunMigrations(sess); err != nil {
		sess.Close()
		return nil, errors.Wrap(err, "running migrations")
	}
	return sess, nil
}

// DBSink journals events into the database. Each DBSink has its own
// session ID, such that we can group the events of a single run.
type DBSink struct {
	logger    model.Logger
	sess      db.Session
	sessionID string
	timeNow   func() time.Time
}

var _ model.TelemetrySink = &DBSink{}

// NewDBSink creates a new DBSink using the given database session.
func NewDBSink(sess db.Session, logger model.Logger) *DBSink {
	return &DBSink{
		logger:    model.ValidLoggerOrDefault(logger),
		sess:      sess,
		sessionID: uuid.NewString(),
		timeNow:   time.Now,
	}
}

// SessionID returns the ID of this session.
func (ds *DBSink) SessionID() string {
	return ds.sessionID
}

// RecordEvent implements model.TelemetrySink. Failing to journal an
// event is logged and otherwise ignored.
func (ds *DBSink) RecordEvent(category, method, object, value string, extra map[string]string) {
	if extra == nil {
		extra = map[string]string{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		ds.logger.Warnf("telemetry: cannot serialize extra: %s", err.Error())
		metricJournalFailuresCount.Inc()
		return
	}
	ev := &JournaledEvent{
		UUID:      uuid.NewString(),
		SessionID: ds.sessionID,
		Time:      ds.timeNow().UTC(),
		Category:  category,
		Method:    method,
		Object:    object,
		Value:     value,
		ExtraJSON: string(extraJSON),
	}
	if _, err := ds.sess.Collection(eventsTable).Insert(ev); err != nil {
		ds.logger.Warnf("telemetry: cannot journal event: %s", err.Error())
		metricJournalFailuresCount.Inc()
	}
}

// ListEvents returns the most recent journaled events, newest first. A
// zero or negative limit means no limit.
func ListEvents(sess db.Session, limit int) ([]*JournaledEvent, error) {
	res := sess.Collection(eventsTable).Find().OrderBy("-event_id")
	if limit > 0 {
		res = res.Limit(limit)
	}
	events := []*JournaledEvent{}
	if err := res.All(&events); err != nil {
		return nil, errors.Wrap(err, "listing events")
	}
	return events, nil
}

// Events is like ListEvents using the sink's database session.
func (ds *DBSink) Events(limit int) ([]*JournaledEvent, error) {
	return ListEvents(ds.sess, limit)
}
