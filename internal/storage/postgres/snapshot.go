package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/sim"
	"github.com/cory-johannsen/yomi/internal/game/vitals"
	"github.com/cory-johannsen/yomi/internal/game/weapon"
)

// ErrSnapshotNotFound is returned when no saved state exists for a combatant.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository persists player and boss combat state.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// SaveState writes every player and boss in s in one transaction.
//
// Postcondition: either all of s is stored or nothing changes.
func (r *SnapshotRepository) SaveState(ctx context.Context, s sim.State) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, p := range s.Players {
			if err := savePlayer(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, b := range s.Bosses {
			if err := saveBoss(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

// SavePlayer upserts one player's vitals, weapon and progression.
func (r *SnapshotRepository) SavePlayer(ctx context.Context, p sim.PlayerState) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return savePlayer(ctx, tx, p)
	})
}

func savePlayer(ctx context.Context, tx pgx.Tx, p sim.PlayerState) error {
	id := p.Vitals.ID
	if err := saveVitals(ctx, tx, p.Vitals); err != nil {
		return err
	}
	if err := saveWeapon(ctx, tx, id, p.Weapon); err != nil {
		return err
	}
	biomes := p.Progress.Biomes
	if biomes == nil {
		biomes = []string{}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO player_progress (player_id, honor, challenge, biomes, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (player_id) DO UPDATE
		SET honor = EXCLUDED.honor, challenge = EXCLUDED.challenge,
		    biomes = EXCLUDED.biomes, updated_at = NOW()`,
		id, p.Progress.Honor, string(p.Progress.Challenge), biomes,
	); err != nil {
		return fmt.Errorf("saving progress for %q: %w", id, err)
	}
	for _, t := range p.Progress.Defeated {
		if _, err := tx.Exec(ctx, `
			INSERT INTO defeated_bosses (player_id, boss_type) VALUES ($1, $2)
			ON CONFLICT (player_id, boss_type) DO NOTHING`,
			id, string(t),
		); err != nil {
			return fmt.Errorf("saving defeated boss %q for %q: %w", t, id, err)
		}
	}
	return nil
}

func saveBoss(ctx context.Context, tx pgx.Tx, b sim.BossState) error {
	id := b.Vitals.ID
	if err := saveVitals(ctx, tx, b.Vitals); err != nil {
		return err
	}
	if err := saveWeapon(ctx, tx, id, b.Weapon); err != nil {
		return err
	}
	e := b.Encounter
	var challenger *string
	if e.ChallengerID != "" {
		challenger = &e.ChallengerID
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO boss_encounters
			(boss_id, encounter_id, def_id, state, phase, enraged, elapsed,
			 challenge, challenger_id, damage_taken, minion_kills, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
		ON CONFLICT (boss_id) DO UPDATE
		SET encounter_id = EXCLUDED.encounter_id, def_id = EXCLUDED.def_id,
		    state = EXCLUDED.state, phase = EXCLUDED.phase, enraged = EXCLUDED.enraged,
		    elapsed = EXCLUDED.elapsed, challenge = EXCLUDED.challenge,
		    challenger_id = EXCLUDED.challenger_id, damage_taken = EXCLUDED.damage_taken,
		    minion_kills = EXCLUDED.minion_kills, updated_at = NOW()`,
		id, e.ID, e.DefID, int(e.State), e.Phase, e.Enraged, e.Elapsed,
		string(e.Challenge), challenger, e.DamageTaken, e.MinionKills,
	); err != nil {
		return fmt.Errorf("saving encounter for %q: %w", id, err)
	}
	return nil
}

func saveVitals(ctx context.Context, tx pgx.Tx, v vitals.Snapshot) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO combatant_vitals
			(combatant_id, health, max_health, stamina, max_stamina, energy, max_energy, dead, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
		ON CONFLICT (combatant_id) DO UPDATE
		SET health = EXCLUDED.health, max_health = EXCLUDED.max_health,
		    stamina = EXCLUDED.stamina, max_stamina = EXCLUDED.max_stamina,
		    energy = EXCLUDED.energy, max_energy = EXCLUDED.max_energy,
		    dead = EXCLUDED.dead, updated_at = NOW()`,
		v.ID, v.Health, v.MaxHealth, v.Stamina, v.MaxStamina, v.Energy, v.MaxEnergy, v.Dead,
	)
	if err != nil {
		return fmt.Errorf("saving vitals for %q: %w", v.ID, err)
	}
	return nil
}

// saveWeapon stores w as ownerID's weapon; nil clears it.
func saveWeapon(ctx context.Context, tx pgx.Tx, ownerID string, w *weapon.Snapshot) error {
	if w == nil {
		if _, err := tx.Exec(ctx, `DELETE FROM weapon_state WHERE owner_id = $1`, ownerID); err != nil {
			return fmt.Errorf("clearing weapon for %q: %w", ownerID, err)
		}
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO weapon_state (owner_id, instance_id, def_id, durability, combo, ammo, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (owner_id) DO UPDATE
		SET instance_id = EXCLUDED.instance_id, def_id = EXCLUDED.def_id,
		    durability = EXCLUDED.durability, combo = EXCLUDED.combo,
		    ammo = EXCLUDED.ammo, updated_at = NOW()`,
		ownerID, w.InstanceID, w.DefID, w.Durability, w.Combo, w.Ammo,
	)
	if err != nil {
		return fmt.Errorf("saving weapon for %q: %w", ownerID, err)
	}
	return nil
}

// LoadPlayer returns the saved state of player id.
//
// Postcondition: Returns ErrSnapshotNotFound when id has no saved progression.
func (r *SnapshotRepository) LoadPlayer(ctx context.Context, id string) (sim.PlayerState, error) {
	var p sim.PlayerState
	v, err := r.loadVitals(ctx, id)
	if err != nil {
		return p, err
	}
	p.Vitals = v
	p.Progress.ID = id

	var challenge string
	err = r.db.QueryRow(ctx,
		`SELECT honor, challenge, biomes FROM player_progress WHERE player_id = $1`, id,
	).Scan(&p.Progress.Honor, &challenge, &p.Progress.Biomes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, fmt.Errorf("loading progress for %q: %w", id, ErrSnapshotNotFound)
		}
		return p, fmt.Errorf("loading progress for %q: %w", id, err)
	}
	p.Progress.Challenge = boss.Challenge(challenge)

	rows, err := r.db.Query(ctx,
		`SELECT boss_type FROM defeated_bosses WHERE player_id = $1 ORDER BY boss_type`, id)
	if err != nil {
		return p, fmt.Errorf("loading defeated bosses for %q: %w", id, err)
	}
	types, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return p, fmt.Errorf("scanning defeated bosses for %q: %w", id, err)
	}
	for _, t := range types {
		p.Progress.Defeated = append(p.Progress.Defeated, boss.Type(t))
	}

	p.Weapon, err = r.loadWeapon(ctx, id)
	return p, err
}

// LoadBoss returns the saved state of boss id.
//
// Postcondition: Returns ErrSnapshotNotFound when id has no saved encounter.
func (r *SnapshotRepository) LoadBoss(ctx context.Context, id string) (sim.BossState, error) {
	var b sim.BossState
	v, err := r.loadVitals(ctx, id)
	if err != nil {
		return b, err
	}
	b.Vitals = v

	var (
		state      int
		challenge  string
		challenger *string
	)
	e := &b.Encounter
	err = r.db.QueryRow(ctx, `
		SELECT encounter_id::text, def_id, state, phase, enraged, elapsed,
		       challenge, challenger_id, damage_taken, minion_kills
		FROM boss_encounters WHERE boss_id = $1`, id,
	).Scan(&e.ID, &e.DefID, &state, &e.Phase, &e.Enraged, &e.Elapsed,
		&challenge, &challenger, &e.DamageTaken, &e.MinionKills)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return b, fmt.Errorf("loading encounter for %q: %w", id, ErrSnapshotNotFound)
		}
		return b, fmt.Errorf("loading encounter for %q: %w", id, err)
	}
	e.BossID = id
	e.State = boss.State(state)
	e.Challenge = boss.Challenge(challenge)
	if challenger != nil {
		e.ChallengerID = *challenger
	}

	b.Weapon, err = r.loadWeapon(ctx, id)
	return b, err
}

func (r *SnapshotRepository) loadVitals(ctx context.Context, id string) (vitals.Snapshot, error) {
	v := vitals.Snapshot{ID: id}
	err := r.db.QueryRow(ctx, `
		SELECT health, max_health, stamina, max_stamina, energy, max_energy, dead
		FROM combatant_vitals WHERE combatant_id = $1`, id,
	).Scan(&v.Health, &v.MaxHealth, &v.Stamina, &v.MaxStamina, &v.Energy, &v.MaxEnergy, &v.Dead)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return v, fmt.Errorf("loading vitals for %q: %w", id, ErrSnapshotNotFound)
		}
		return v, fmt.Errorf("loading vitals for %q: %w", id, err)
	}
	return v, nil
}

// loadWeapon returns nil without error when ownerID has no stored weapon.
func (r *SnapshotRepository) loadWeapon(ctx context.Context, ownerID string) (*weapon.Snapshot, error) {
	w := weapon.Snapshot{Owner: ownerID}
	err := r.db.QueryRow(ctx, `
		SELECT instance_id::text, def_id, durability, combo, ammo
		FROM weapon_state WHERE owner_id = $1`, ownerID,
	).Scan(&w.InstanceID, &w.DefID, &w.Durability, &w.Combo, &w.Ammo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading weapon for %q: %w", ownerID, err)
	}
	return &w, nil
}

// Delete removes every saved row for combatant id.
func (r *SnapshotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM combatant_vitals WHERE combatant_id = $1`, id); err != nil {
		return fmt.Errorf("deleting snapshot for %q: %w", id, err)
	}
	return nil
}
