package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veilstead/realmd/internal/model"
	"github.com/veilstead/realmd/internal/world"
)

// CharacterRepository persists characters (model.Player) to Postgres.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository wraps a connection pool as a CharacterRepository.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// characterRow holds one scanned characters-table row before it is turned
// into a model.Player; fields mirror the SELECT column order exactly.
type characterRow struct {
	characterID int64
	accountID   int64
	name        string
	level       int32
	raceID      int32
	classID     int32
	x, y, z     int32
	heading     uint16
	currentHP   int32
	maxHP       int32
	currentMP   int32
	maxMP       int32
	currentCP   int32
	maxCP       int32
	experience  int64
	createdAt   time.Time
	lastLogin   *time.Time
}

// toPlayer mints a fresh object ID and builds a model.Player from the row,
// then applies the location, stat, and timestamp fields the constructor
// can't take directly.
func (row characterRow) toPlayer() (*model.Player, error) {
	objectID := world.IDGenerator().NextPlayerID()
	player, err := model.NewPlayer(objectID, row.characterID, row.accountID, row.name, row.level, row.raceID, row.classID)
	if err != nil {
		return nil, fmt.Errorf("creating player model: %w", err)
	}

	player.SetLocation(model.NewLocation(row.x, row.y, row.z, row.heading))

	player.SetMaxHP(row.maxHP)
	player.SetMaxMP(row.maxMP)
	player.SetMaxCP(row.maxCP)
	player.SetCurrentHP(row.currentHP)
	player.SetCurrentMP(row.currentMP)
	player.SetCurrentCP(row.currentCP)

	player.SetExperience(row.experience)

	player.SetCreatedAt(row.createdAt)
	if row.lastLogin != nil {
		player.SetLastLogin(*row.lastLogin)
	}

	return player, nil
}

const characterColumns = `character_id, account_id, name, level, race_id, class_id,
	       x, y, z, heading,
	       current_hp, max_hp, current_mp, max_mp, current_cp, max_cp,
	       experience, created_at, last_login`

func scanCharacterRow(scan func(dest ...any) error) (characterRow, error) {
	var row characterRow
	err := scan(
		&row.characterID, &row.accountID, &row.name, &row.level, &row.raceID, &row.classID,
		&row.x, &row.y, &row.z, &row.heading,
		&row.currentHP, &row.maxHP, &row.currentMP, &row.maxMP, &row.currentCP, &row.maxCP,
		&row.experience, &row.createdAt, &row.lastLogin,
	)
	return row, err
}

// LoadByID loads one character by its DB ID. A missing row is reported as
// (nil, nil), not an error.
func (r *CharacterRepository) LoadByID(ctx context.Context, characterID int64) (*model.Player, error) {
	query := `SELECT ` + characterColumns + `
		FROM characters
		WHERE character_id = $1`

	row, err := scanCharacterRow(r.db.QueryRow(ctx, query, characterID).Scan)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying character %d: %w", characterID, err)
	}

	return row.toPlayer()
}

// LoadByAccountName loads every character belonging to an account, looked
// up by the account's login name in the characters table's account_name
// column.
func (r *CharacterRepository) LoadByAccountName(ctx context.Context, accountName string) ([]*model.Player, error) {
	query := `SELECT character_id, account_name, name, level, race_id, class_id,
	       x, y, z, heading,
	       current_hp, max_hp, current_mp, max_mp, current_cp, max_cp,
	       experience, created_at, last_login
		FROM characters
		WHERE account_name = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, accountName)
	if err != nil {
		return nil, fmt.Errorf("querying characters for account %s: %w", accountName, err)
	}
	defer rows.Close()

	// Most accounts keep somewhere between 3 and 7 characters.
	players := make([]*model.Player, 0, 8)

	for rows.Next() {
		var characterID int64
		var rowAccountName string
		var name string
		var level, raceID, classID int32
		var x, y, z int32
		var heading uint16
		var currentHP, maxHP, currentMP, maxMP, currentCP, maxCP int32
		var experience int64
		var createdAt time.Time
		var lastLogin *time.Time

		if err := rows.Scan(
			&characterID, &rowAccountName, &name, &level, &raceID, &classID,
			&x, &y, &z, &heading,
			&currentHP, &maxHP, &currentMP, &maxMP, &currentCP, &maxCP,
			&experience, &createdAt, &lastLogin,
		); err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}

		row := characterRow{
			characterID: characterID, accountID: 0, name: name,
			level: level, raceID: raceID, classID: classID,
			x: x, y: y, z: z, heading: heading,
			currentHP: currentHP, maxHP: maxHP,
			currentMP: currentMP, maxMP: maxMP,
			currentCP: currentCP, maxCP: maxCP,
			experience: experience, createdAt: createdAt, lastLogin: lastLogin,
		}
		player, err := row.toPlayer()
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating character rows: %w", err)
	}

	return players, nil
}

// LoadByAccountID loads every character belonging to an account ID.
// Deprecated: use LoadByAccountName.
func (r *CharacterRepository) LoadByAccountID(ctx context.Context, accountID int64) ([]*model.Player, error) {
	query := `SELECT ` + characterColumns + `
		FROM characters
		WHERE account_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying characters for account %d: %w", accountID, err)
	}
	defer rows.Close()

	players := make([]*model.Player, 0, 8)

	for rows.Next() {
		row, err := scanCharacterRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}

		player, err := row.toPlayer()
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating character rows: %w", err)
	}

	return players, nil
}

// Create inserts a new character row and stamps the player with the
// character_id and created_at the DB assigned.
func (r *CharacterRepository) Create(ctx context.Context, p *model.Player) error {
	query := `
		INSERT INTO characters (
			account_id, name, level, race_id, class_id,
			x, y, z, heading,
			current_hp, max_hp, current_mp, max_mp, current_cp, max_cp,
			experience
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING character_id, created_at
	`

	loc := p.Location()

	var characterID int64
	var createdAt time.Time

	err := r.db.QueryRow(ctx, query,
		p.AccountID(), p.Name(), p.Level(), p.RaceID(), p.ClassID(),
		loc.X, loc.Y, loc.Z, loc.Heading,
		p.CurrentHP(), p.MaxHP(), p.CurrentMP(), p.MaxMP(), p.CurrentCP(), p.MaxCP(),
		p.Experience(),
	).Scan(&characterID, &createdAt)

	if err != nil {
		return fmt.Errorf("creating character: %w", err)
	}

	p.SetCharacterID(characterID)
	p.SetCreatedAt(createdAt)

	return nil
}

// Update writes every mutable field of an existing character back to the DB.
func (r *CharacterRepository) Update(ctx context.Context, p *model.Player) error {
	query := `
		UPDATE characters
		SET level = $2, x = $3, y = $4, z = $5, heading = $6,
		    current_hp = $7, max_hp = $8, current_mp = $9, max_mp = $10,
		    current_cp = $11, max_cp = $12, experience = $13, last_login = $14
		WHERE character_id = $1
	`

	loc := p.Location()

	// A zero LastLogin means "never logged in"; store that as SQL NULL
	// rather than the zero time.
	var lastLogin any = p.LastLogin()
	if p.LastLogin().IsZero() {
		lastLogin = nil
	}

	_, err := r.db.Exec(ctx, query,
		p.CharacterID(), p.Level(),
		loc.X, loc.Y, loc.Z, loc.Heading,
		p.CurrentHP(), p.MaxHP(), p.CurrentMP(), p.MaxMP(),
		p.CurrentCP(), p.MaxCP(), p.Experience(), lastLogin,
	)

	if err != nil {
		return fmt.Errorf("updating character %d: %w", p.CharacterID(), err)
	}

	return nil
}

// UpdateLocation writes only the coordinate columns, for the movement-packet
// hot path where a full Update would touch far more than it needs to.
func (r *CharacterRepository) UpdateLocation(ctx context.Context, characterID int64, loc model.Location) error {
	query := `
		UPDATE characters
		SET x = $2, y = $3, z = $4, heading = $5
		WHERE character_id = $1
	`

	_, err := r.db.Exec(ctx, query, characterID, loc.X, loc.Y, loc.Z, loc.Heading)
	if err != nil {
		return fmt.Errorf("updating location for character %d: %w", characterID, err)
	}

	return nil
}

// UpdateStats writes only the HP/MP/CP columns, for the combat-packet hot
// path.
func (r *CharacterRepository) UpdateStats(ctx context.Context, characterID int64, hp, mp, cp int32) error {
	query := `
		UPDATE characters
		SET current_hp = $2, current_mp = $3, current_cp = $4
		WHERE character_id = $1
	`

	_, err := r.db.Exec(ctx, query, characterID, hp, mp, cp)
	if err != nil {
		return fmt.Errorf("updating stats for character %d: %w", characterID, err)
	}

	return nil
}

// Delete removes a character row.
func (r *CharacterRepository) Delete(ctx context.Context, characterID int64) error {
	query := `DELETE FROM characters WHERE character_id = $1`

	result, err := r.db.Exec(ctx, query, characterID)
	if err != nil {
		return fmt.Errorf("deleting character %d: %w", characterID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("character %d not found", characterID)
	}

	return nil
}
