package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/atomgen/internal/ir"
)

// Atom variants as stored in the variant column.
const (
	VariantChained    = "chained"
	VariantNonChained = "non_chained"
)

// Run describes one stored catalog.
type Run struct {
	ID              string `json:"id" yaml:"id"`
	Seq             int64  `json:"seq" yaml:"seq"`
	Fingerprint     string `json:"fingerprint" yaml:"fingerprint"`
	Module          string `json:"module,omitempty" yaml:"module,omitempty"`
	IRVersion       string `json:"ir_version" yaml:"ir_version"`
	CollatorVersion string `json:"collator_version" yaml:"collator_version"`
}

// WriteCatalog stores a catalog as a new run in a single transaction.
// Returns the run and whether it was inserted.
//
// Runs are deduplicated by fingerprint: if an identical catalog is already
// stored, nothing is written and the existing run is returned with
// inserted=false.
func (s *Store) WriteCatalog(ctx context.Context, c *ir.Catalog) (run Run, inserted bool, err error) {
	fingerprint, err := ir.Fingerprint(c)
	if err != nil {
		return Run{}, false, fmt.Errorf("write catalog: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, false, fmt.Errorf("write catalog: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	existing, err := scanRun(tx.QueryRowContext(ctx, `
		SELECT id, seq, fingerprint, module, ir_version, collator_version
		FROM runs WHERE fingerprint = ?
	`, fingerprint))
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Run{}, false, fmt.Errorf("write catalog: select existing: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return Run{}, false, fmt.Errorf("write catalog: next seq: %w", err)
	}

	run = Run{
		ID:              uuid.NewString(),
		Seq:             seq,
		Fingerprint:     fingerprint,
		Module:          c.Module,
		IRVersion:       c.IRVersion,
		CollatorVersion: ir.CollatorVersion,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, fingerprint, module, ir_version, collator_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Seq, run.Fingerprint, run.Module, run.IRVersion, run.CollatorVersion); err != nil {
		return Run{}, false, fmt.Errorf("write catalog: insert run: %w", err)
	}

	for i, a := range c.Atoms {
		if err := writeAtom(ctx, tx, run.ID, VariantChained, i, a); err != nil {
			return Run{}, false, fmt.Errorf("write catalog: %w", err)
		}
	}
	for i, a := range c.NonChainedAtoms {
		if err := writeAtom(ctx, tx, run.ID, VariantNonChained, i, a); err != nil {
			return Run{}, false, fmt.Errorf("write catalog: %w", err)
		}
	}

	// Positions restart per kind.
	positions := make(map[string]int)
	for _, sig := range c.Signatures {
		pos := positions[sig.Kind]
		positions[sig.Kind]++
		if err := writeSignature(ctx, tx, run.ID, pos, sig); err != nil {
			return Run{}, false, fmt.Errorf("write catalog: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, false, fmt.Errorf("write catalog: commit: %w", err)
	}

	return run, true, nil
}

func writeAtom(ctx context.Context, tx *sql.Tx, runID, variant string, pos int, a ir.CatalogAtom) error {
	primary, err := marshalList("primary fields", a.PrimaryFields)
	if err != nil {
		return err
	}

	var defaultState, triggerReset sql.NullInt32
	if a.DefaultState != nil {
		defaultState = sql.NullInt32{Int32: *a.DefaultState, Valid: true}
	}
	if a.TriggerStateReset != nil {
		triggerReset = sql.NullInt32{Int32: *a.TriggerStateReset, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO atoms
		(run_id, variant, position, code, name, message, kind, primary_fields,
		 exclusive_field, default_state, trigger_state_reset, nested, restricted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, variant, pos,
		a.Code, a.Name, a.Message, a.Kind, primary,
		a.ExclusiveField, defaultState, triggerReset,
		boolInt(a.Nested), boolInt(a.Restricted),
	); err != nil {
		return fmt.Errorf("insert atom %s: %w", a.Name, err)
	}

	for i, f := range a.Fields {
		values, err := marshalList("enum values", f.EnumValues)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO atom_fields
			(run_id, variant, atom_position, position, name, type, enum_type, enum_values)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, variant, pos, i, f.Name, f.Type, f.EnumType, values); err != nil {
			return fmt.Errorf("insert field %s.%s: %w", a.Name, f.Name, err)
		}
	}

	for _, fa := range a.Annotations {
		for _, ann := range fa.Annotations {
			value, err := annotationValue(ann)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO annotations
				(run_id, variant, atom_position, field_number, annotation_id, name, type, value)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, runID, variant, pos, fa.Field, ann.ID, ann.Name, ann.Type, value); err != nil {
				return fmt.Errorf("insert annotation %s on %s: %w", ann.Name, a.Name, err)
			}
		}
	}

	return nil
}

func writeSignature(ctx context.Context, tx *sql.Tx, runID string, pos int, sig ir.CatalogSignature) error {
	types, err := marshalList("signature types", sig.Types)
	if err != nil {
		return err
	}
	members, err := marshalList("signature members", sig.Members)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO signatures (run_id, kind, position, types, members)
		VALUES (?, ?, ?, ?, ?)
	`, runID, sig.Kind, pos, types, members); err != nil {
		return fmt.Errorf("insert signature %s %v: %w", sig.Kind, sig.Types, err)
	}

	for _, f := range sig.Fields {
		atoms, err := marshalList("signature field atoms", f.Atoms)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO signature_fields (run_id, kind, signature_position, field_number, atoms)
			VALUES (?, ?, ?, ?, ?)
		`, runID, sig.Kind, pos, f.Field, atoms); err != nil {
			return fmt.Errorf("insert signature field %d: %w", f.Field, err)
		}
	}

	return nil
}
