package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/liliumshare/liliumshare/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    pubkey   TEXT PRIMARY KEY,
    nickname TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_nickname_idx ON users (nickname);

CREATE TABLE IF NOT EXISTS friendships (
    host        TEXT NOT NULL,
    viewer      TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'pending',
    permissions JSONB NOT NULL DEFAULT '{}'::jsonb,
    PRIMARY KEY (host, viewer)
);

CREATE TABLE IF NOT EXISTS connection_keys (
    host       TEXT NOT NULL,
    viewer     TEXT NOT NULL,
    key        TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (host, viewer)
);
`

// Postgres is the durable Directory backed by database/sql.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres dials the database and ensures the schema. The retry loop
// covers container startup ordering where the database is not yet accepting
// connections.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	for i := 0; i < 30; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 4*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) UpsertUser(ctx context.Context, user domain.User) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (pubkey, nickname) VALUES ($1, $2)
ON CONFLICT (pubkey) DO UPDATE SET nickname = EXCLUDED.nickname`,
		string(user.Pubkey), user.Nickname)
	return err
}

func (p *Postgres) GetUser(ctx context.Context, pubkey domain.Identity) (domain.User, error) {
	var u domain.User
	err := p.db.QueryRowContext(ctx,
		`SELECT pubkey, nickname FROM users WHERE pubkey = $1`,
		string(pubkey)).Scan(&u.Pubkey, &u.Nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

func (p *Postgres) GetUserByNickname(ctx context.Context, nickname string) (domain.User, error) {
	var u domain.User
	err := p.db.QueryRowContext(ctx,
		`SELECT pubkey, nickname FROM users WHERE nickname = $1`,
		nickname).Scan(&u.Pubkey, &u.Nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

func (p *Postgres) GetFriendship(ctx context.Context, host, viewer domain.Identity) (domain.Friendship, error) {
	var (
		f   domain.Friendship
		raw []byte
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT host, viewer, status, permissions FROM friendships WHERE host = $1 AND viewer = $2`,
		string(host), string(viewer)).Scan(&f.Host, &f.Viewer, &f.Status, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Friendship{}, ErrNotFound
	}
	if err != nil {
		return domain.Friendship{}, err
	}
	f.Permissions = domain.PermissionSet{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f.Permissions); err != nil {
			return domain.Friendship{}, fmt.Errorf("decode permissions: %w", err)
		}
	}
	return f, nil
}

func (p *Postgres) RequestFriendship(ctx context.Context, from, to domain.Identity) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO friendships (host, viewer, status) VALUES ($1, $2, 'pending')
ON CONFLICT (host, viewer) DO NOTHING`,
		string(from), string(to))
	return err
}

func (p *Postgres) AcceptFriendship(ctx context.Context, a, b domain.Identity) error {
	return p.withTx(ctx, func(tx *sql.Tx) error {
		for _, d := range [][2]domain.Identity{{a, b}, {b, a}} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO friendships (host, viewer, status) VALUES ($1, $2, 'accepted')
ON CONFLICT (host, viewer) DO UPDATE SET status = 'accepted'`,
				string(d[0]), string(d[1])); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Postgres) UpsertFriendship(ctx context.Context, f domain.Friendship) error {
	perms := f.Permissions
	if perms == nil {
		perms = domain.PermissionSet{}
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO friendships (host, viewer, status, permissions) VALUES ($1, $2, $3, $4::jsonb)
ON CONFLICT (host, viewer) DO UPDATE SET status = EXCLUDED.status, permissions = EXCLUDED.permissions`,
		string(f.Host), string(f.Viewer), string(f.Status), string(raw))
	return err
}

func (p *Postgres) SetPermissions(ctx context.Context, host, viewer domain.Identity, perms domain.PermissionSet) error {
	raw, err := json.Marshal(perms.Clone())
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE friendships SET permissions = $3::jsonb WHERE host = $1 AND viewer = $2`,
		string(host), string(viewer), string(raw))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListFriendships(ctx context.Context, me domain.Identity) ([]domain.Friendship, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT host, viewer, status, permissions FROM friendships WHERE host = $1 OR viewer = $1`,
		string(me))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Friendship, 0)
	for rows.Next() {
		var (
			f   domain.Friendship
			raw []byte
		)
		if err := rows.Scan(&f.Host, &f.Viewer, &f.Status, &raw); err != nil {
			return nil, err
		}
		f.Permissions = domain.PermissionSet{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &f.Permissions); err != nil {
				return nil, fmt.Errorf("decode permissions: %w", err)
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *Postgres) PutConnectionKey(ctx context.Context, key domain.ConnectionKey) error {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO connection_keys (host, viewer, key, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (host, viewer) DO UPDATE SET key = EXCLUDED.key, created_at = EXCLUDED.created_at`,
		string(key.Host), string(key.Viewer), key.Key, key.CreatedAt)
	return err
}

func (p *Postgres) GetConnectionKey(ctx context.Context, host, viewer domain.Identity) (domain.ConnectionKey, error) {
	var k domain.ConnectionKey
	err := p.db.QueryRowContext(ctx,
		`SELECT host, viewer, key, created_at FROM connection_keys WHERE host = $1 AND viewer = $2`,
		string(host), string(viewer)).Scan(&k.Host, &k.Viewer, &k.Key, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ConnectionKey{}, ErrNotFound
	}
	return k, err
}

func (p *Postgres) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
