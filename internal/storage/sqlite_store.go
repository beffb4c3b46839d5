package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/planetary-radio/ringocc/internal/dlp"
	"github.com/planetary-radio/ringocc/internal/ringfit"
)

// SqliteStore implements Store on a SQLite database file.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the SQLite database at
// dbPath. Connections are opened lazily; the schema is initialized on
// the first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		s.writeDB = db
	})
	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})
	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateRun(ctx context.Context, obsID, direction string, drKm float64, config any) (runID int64, err error) {
	var configData sql.NullString
	if config != nil {
		switch c := config.(type) {
		case string:
			configData.Valid = true
			configData.String = c
		case []byte:
			configData.Valid = true
			configData.String = string(c)
		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}
			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, obsID, direction, drKm, configData)
	if err != nil {
		err = fmt.Errorf("inserting run: %w", err)
		return
	}

	runID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting run ID: %w", err)
	}
	return
}

func (s *SqliteStore) StoreProfile(ctx context.Context, runID int64, p *dlp.Profile) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			rollbackWithError(tx, &err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for i := 0; i < p.Len(); i++ {
		if _, err = stmt.ExecContext(ctx, runID,
			p.RhoKm[i], p.OETSec[i], p.RETSec[i], p.SETSec[i],
			p.PowerNorm[i], p.PhaseRad[i], p.Tau[i], p.TauThreshold[i],
			p.BRad[i], p.DKm[i], p.FKm[i], p.SkyFreqHz[i],
			p.PhiOraRad[i], p.PhiRlRad[i], p.RhoDotKms[i],
		); err != nil {
			return fmt.Errorf("inserting sample %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing profile: %w", err)
	}
	committed = true
	return nil
}

func (s *SqliteStore) StoreFit(ctx context.Context, runID *int64, r *ringfit.Result) (fitID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	var run sql.NullInt64
	if runID != nil {
		run.Valid = true
		run.Int64 = *runID
	}
	params, err := json.Marshal(r.Params)
	if err != nil {
		err = fmt.Errorf("marshaling parameters: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertFitSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, run, r.ObsID, string(r.Shape), int(r.Flag),
		r.CentKm, r.CentKmErr, r.CentOETSPM, r.CentOETUTC, r.CentRETSPM,
		r.RhoDotKms, r.ILongDeg, r.RMSResid, r.SumSqResid, string(params))
	if err != nil {
		err = fmt.Errorf("inserting fit: %w", err)
		return
	}

	fitID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting fit ID: %w", err)
	}
	return
}

func (s *SqliteStore) Runs(ctx context.Context) (runs []Run, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectRunsSQL)
	if err != nil {
		err = fmt.Errorf("querying runs: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r Run
		var config sql.NullString
		if err = rows.Scan(&r.ID, &r.CreatedAt, &r.ObsID, &r.Direction, &r.DrKm, &config); err != nil {
			err = fmt.Errorf("scanning run: %w", err)
			return
		}
		if config.Valid {
			r.Config = &config.String
		}
		runs = append(runs, r)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) ProfileSampleCount(ctx context.Context, runID int64) (count int64, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}
	if err = db.QueryRowContext(ctx, countSamplesSQL, runID).Scan(&count); err != nil {
		err = fmt.Errorf("counting samples: %w", err)
	}
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				s.closeErr = err
			}
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}
