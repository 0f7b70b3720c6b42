package model

import (
	"fmt"
	"sync"
	"time"
)

// Player — игровой персонаж.
// Добавляет player-specific данные к Character: DB identity, account
// linkage, and progression fields that the character repository
// persists. Everything else the teacher's Player carried — inventory,
// skills, party, clan, trade, AI — sits outside the network core and
// is deliberately not modeled here.
type Player struct {
	*Character // embedded

	characterID int64
	accountID   int64
	raceID      int32
	classID     int32
	experience  int64
	createdAt   time.Time
	lastLogin   time.Time

	playerMu sync.RWMutex // guards the fields above
}

// NewPlayer создаёт нового игрока с валидацией.
// objectID must be unique across all world objects.
func NewPlayer(objectID uint32, characterID, accountID int64, name string, level, raceID, classID int32) (*Player, error) {
	if name == "" || len(name) < 2 {
		return nil, fmt.Errorf("name must be at least 2 characters, got %q", name)
	}
	if level < 1 || level > 80 {
		return nil, fmt.Errorf("level must be between 1 and 80, got %d", level)
	}

	loc := NewLocation(0, 0, 0, 0)

	maxHP := int32(1000 + level*50)
	maxMP := int32(500 + level*25)
	maxCP := int32(800 + level*40)

	p := &Player{
		Character:   NewCharacter(objectID, name, loc, level, maxHP, maxMP, maxCP),
		characterID: characterID,
		accountID:   accountID,
		raceID:      raceID,
		classID:     classID,
		createdAt:   time.Now(),
	}

	return p, nil
}

// CharacterID возвращает DB ID персонажа (меняется только через SetCharacterID).
func (p *Player) CharacterID() int64 {
	return p.characterID
}

// SetCharacterID устанавливает DB ID после вставки новой записи.
func (p *Player) SetCharacterID(id int64) {
	p.playerMu.Lock()
	defer p.playerMu.Unlock()
	p.characterID = id
}

// AccountID возвращает ID аккаунта (immutable).
func (p *Player) AccountID() int64 {
	return p.accountID
}

// RaceID возвращает ID расы.
func (p *Player) RaceID() int32 {
	p.playerMu.RLock()
	defer p.playerMu.RUnlock()
	return p.raceID
}

// ClassID возвращает ID класса.
func (p *Player) ClassID() int32 {
	p.playerMu.RLock()
	defer p.playerMu.RUnlock()
	return p.classID
}

// Experience возвращает текущий опыт.
func (p *Player) Experience() int64 {
	p.playerMu.RLock()
	defer p.playerMu.RUnlock()
	return p.experience
}

// SetExperience устанавливает точное значение опыта (для загрузки из DB).
func (p *Player) SetExperience(exp int64) {
	p.playerMu.Lock()
	defer p.playerMu.Unlock()

	if exp < 0 {
		exp = 0
	}
	p.experience = exp
}

// CreatedAt возвращает время создания персонажа.
func (p *Player) CreatedAt() time.Time {
	p.playerMu.RLock()
	defer p.playerMu.RUnlock()
	return p.createdAt
}

// SetCreatedAt устанавливает время создания (значение из БД).
func (p *Player) SetCreatedAt(t time.Time) {
	p.playerMu.Lock()
	defer p.playerMu.Unlock()
	p.createdAt = t
}

// LastLogin возвращает время последнего входа.
func (p *Player) LastLogin() time.Time {
	p.playerMu.RLock()
	defer p.playerMu.RUnlock()
	return p.lastLogin
}

// SetLastLogin устанавливает время последнего входа (значение из БД).
func (p *Player) SetLastLogin(t time.Time) {
	p.playerMu.Lock()
	defer p.playerMu.Unlock()
	p.lastLogin = t
}
