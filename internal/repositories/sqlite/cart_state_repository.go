// Package sqlite provides the durable local mirror of the cart, backed by a
// single-file SQLite database so state survives process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	domain "github.com/posterlane/api/internal/domain"
	"github.com/posterlane/api/internal/repositories"
)

// The persisted layout is two independent string-keyed entries, one for the
// serialized item sequence and one for the custom-upload counter.
const (
	keyItems       = "cartItems"
	keyCustomCount = "cartCustomCount"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS cart_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// Store persists CartState in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens (and if needed creates) the cart database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cart db path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cart db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping cart db: %w", err)
	}
	if _, err := sqlDB.Exec(createTableSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure cart_state table: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Ping reports whether the database is reachable, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return errors.New("cart store is not open")
	}
	return s.sqlDB.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// persistedItem is the on-disk JSON shape of one cart line. Field names
// match the storefront's historical serialization so existing stored carts
// keep rehydrating.
type persistedItem struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Type      string `json:"type"`
	Size      string `json:"size"`
	Thickness string `json:"thickness,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	OrderCode string `json:"orderCode,omitempty"`
	AddedAt   string `json:"addedAt,omitempty"`
}

// Load reads the persisted cart. Missing entries yield the empty state;
// undecodable entries yield the empty state together with ErrCorruptState so
// the caller can log the discard. Corruption is never partially applied.
func (s *Store) Load(ctx context.Context) (domain.CartState, error) {
	if s == nil || s.sqlDB == nil {
		return domain.CartState{}, errors.New("cart store is not open")
	}

	rawItems, ok, err := s.get(ctx, keyItems)
	if err != nil {
		return domain.CartState{}, err
	}
	state := domain.CartState{}
	if ok {
		var persisted []persistedItem
		if err := json.Unmarshal([]byte(rawItems), &persisted); err != nil {
			return domain.CartState{}, fmt.Errorf("%w: items: %v", repositories.ErrCorruptState, err)
		}
		state.Items = make([]domain.CartItem, 0, len(persisted))
		for _, item := range persisted {
			state.Items = append(state.Items, fromPersisted(item))
		}
	}

	rawCount, ok, err := s.get(ctx, keyCustomCount)
	if err != nil {
		return domain.CartState{}, err
	}
	if ok {
		count, err := strconv.ParseInt(strings.TrimSpace(rawCount), 10, 64)
		if err != nil || count < 0 {
			return domain.CartState{}, fmt.Errorf("%w: custom counter %q", repositories.ErrCorruptState, rawCount)
		}
		state.CustomCounter = count
	}

	return state, nil
}

// Save writes the full state in one transaction so the two entries never go
// out of step with each other.
func (s *Store) Save(ctx context.Context, state domain.CartState) error {
	if s == nil || s.sqlDB == nil {
		return errors.New("cart store is not open")
	}

	persisted := make([]persistedItem, 0, len(state.Items))
	for _, item := range state.Items {
		persisted = append(persisted, toPersisted(item))
	}
	encoded, err := json.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cart save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC().UnixMilli()
	upsert := `INSERT INTO cart_state (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := tx.ExecContext(ctx, upsert, keyItems, string(encoded), now); err != nil {
		return fmt.Errorf("save cart items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, keyCustomCount, strconv.FormatInt(state.CustomCounter, 10), now); err != nil {
		return fmt.Errorf("save custom counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cart save: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM cart_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}

func toPersisted(item domain.CartItem) persistedItem {
	out := persistedItem{
		ID:        item.ID,
		Title:     item.Title,
		Image:     item.Image,
		Type:      item.PosterType,
		Size:      item.Size,
		Thickness: item.Thickness,
		Price:     item.UnitPrice,
		Quantity:  item.Quantity,
		OrderCode: item.CustomOrderRef,
	}
	if !item.AddedAt.IsZero() {
		out.AddedAt = item.AddedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}

func fromPersisted(item persistedItem) domain.CartItem {
	out := domain.CartItem{
		ID:             item.ID,
		Title:          item.Title,
		Image:          item.Image,
		PosterType:     item.Type,
		Size:           item.Size,
		Thickness:      item.Thickness,
		UnitPrice:      item.Price,
		Quantity:       item.Quantity,
		CustomOrderRef: item.OrderCode,
	}
	if item.AddedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, item.AddedAt); err == nil {
			out.AddedAt = ts.UTC()
		}
	}
	return out
}
