package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

var schema = []string{
	`create table if not exists round_results (
		id text not null primary key,
		room_id text not null,
		created_at text not null,
		winner_id text,
		winner_name text,
		pot bigint not null,
		rake bigint not null,
		payout bigint not null
	)`,
	`create table if not exists round_players (
		round_id text not null,
		player_id text not null,
		name text not null,
		chips bigint not null,
		primary key (round_id, player_id)
	)`,
}

const resultColumns = "id, room_id, created_at, winner_id, winner_name, pot, rake, payout"

// Service is the round-result ledger.
type Service struct {
	db     *sql.DB
	m      *sync.Mutex
	driver string
	log    *zap.Logger
}

// New opens the ledger with the given driver ("sqlite3" or "pgx") and creates its tables.
func New(driver, dsn string, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	logger.Info("database ready", zap.String("driver", driver))
	return &Service{
		db:     db,
		m:      &sync.Mutex{},
		driver: driver,
		log:    logger,
	}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Service) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Insert stores a round result with its player balances in one transaction.
func (s *Service) Insert(result RoundResult) error {
	s.m.Lock()
	defer s.m.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(s.rebind("INSERT INTO round_results ("+resultColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
		result.ID,
		result.RoomID,
		result.CreatedAt,
		result.WinnerID,
		result.WinnerName,
		result.Pot,
		result.Rake,
		result.Payout)
	if err != nil {
		return fmt.Errorf("insert round %s: %w", result.ID, err)
	}

	for _, p := range result.Players {
		_, err = tx.Exec(s.rebind("INSERT INTO round_players (round_id, player_id, name, chips) VALUES (?, ?, ?, ?)"),
			result.ID, p.PlayerID, p.Name, p.Chips)
		if err != nil {
			return fmt.Errorf("insert round %s player %s: %w", result.ID, p.PlayerID, err)
		}
	}
	return tx.Commit()
}

func (s *Service) GetAll() ([]RoundResult, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.queryResults("SELECT " + resultColumns + " FROM round_results ORDER BY created_at, id")
}

func (s *Service) GetByID(id string) (RoundResult, error) {
	s.m.Lock()
	defer s.m.Unlock()
	results, err := s.queryResults("SELECT "+resultColumns+" FROM round_results WHERE id = ?", id)
	if err != nil {
		return RoundResult{}, err
	}
	if len(results) == 0 {
		return RoundResult{}, sql.ErrNoRows
	}
	return results[0], nil
}

// GetByPlayer returns every round the named player sat in, or sql.ErrNoRows.
func (s *Service) GetByPlayer(playerName string) ([]RoundResult, error) {
	s.m.Lock()
	defer s.m.Unlock()
	results, err := s.queryResults("SELECT "+resultColumns+" FROM round_results r"+
		" WHERE EXISTS (SELECT 1 FROM round_players p WHERE p.round_id = r.id AND p.name = ?)"+
		" ORDER BY created_at, id",
		playerName)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, sql.ErrNoRows
	}
	return results, nil
}

// queryResults runs a round_results query and loads each round's players. Assumes lock is held.
func (s *Service) queryResults(query string, args ...any) ([]RoundResult, error) {
	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RoundResult
	for rows.Next() {
		var (
			result     RoundResult
			winnerID   sql.NullString
			winnerName sql.NullString
		)
		if err := rows.Scan(
			&result.ID,
			&result.RoomID,
			&result.CreatedAt,
			&winnerID,
			&winnerName,
			&result.Pot,
			&result.Rake,
			&result.Payout); err != nil {
			return nil, err
		}
		result.WinnerID = winnerID.String
		result.WinnerName = winnerName.String
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		players, err := s.queryPlayers(results[i].ID)
		if err != nil {
			return nil, err
		}
		results[i].Players = players
	}
	return results, nil
}

func (s *Service) queryPlayers(roundID string) ([]PlayerResult, error) {
	rows, err := s.db.Query(s.rebind("SELECT player_id, name, chips FROM round_players WHERE round_id = ? ORDER BY player_id"), roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []PlayerResult{}
	for rows.Next() {
		var p PlayerResult
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Chips); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
