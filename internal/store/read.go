package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/atomgen/internal/ir"
)

// ErrNotFound is returned when a run or atom does not exist.
var ErrNotFound = errors.New("not found")

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Seq, &r.Fingerprint, &r.Module, &r.IRVersion, &r.CollatorVersion)
	return r, err
}

// ReadRun returns the run with the given ID.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, seq, fingerprint, module, ir_version, collator_version
		FROM runs WHERE id = ?
	`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	return r, nil
}

// LatestRun returns the most recently written run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, seq, fingerprint, module, ir_version, collator_version
		FROM runs ORDER BY seq DESC LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// ListRuns returns every run in write order.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, fingerprint, module, ir_version, collator_version
		FROM runs ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadCatalog reassembles the catalog of a run.
func (s *Store) ReadCatalog(ctx context.Context, runID string) (*ir.Catalog, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	c := &ir.Catalog{IRVersion: run.IRVersion, Module: run.Module}
	if c.Atoms, err = s.ReadAtoms(ctx, runID, VariantChained); err != nil {
		return nil, err
	}
	if c.NonChainedAtoms, err = s.ReadAtoms(ctx, runID, VariantNonChained); err != nil {
		return nil, err
	}
	for _, kind := range []string{ir.KindPushed, ir.KindPulled, ir.KindNonChained} {
		sigs, err := s.ReadSignatures(ctx, runID, kind)
		if err != nil {
			return nil, err
		}
		c.Signatures = append(c.Signatures, sigs...)
	}
	return c, nil
}

// ReadAtoms returns the atoms of one variant of a run, in IR order.
func (s *Store) ReadAtoms(ctx context.Context, runID, variant string) ([]ir.CatalogAtom, error) {
	atoms, err := s.readAtomRows(ctx, `
		SELECT position, code, name, message, kind, primary_fields, exclusive_field,
		       default_state, trigger_state_reset, nested, restricted
		FROM atoms
		WHERE run_id = ? AND variant = ?
		ORDER BY position ASC
	`, runID, variant)
	if err != nil {
		return nil, err
	}
	if len(atoms) == 0 {
		return nil, nil
	}

	fields, err := s.readFields(ctx, runID, variant)
	if err != nil {
		return nil, err
	}
	annotations, err := s.readAnnotations(ctx, runID, variant)
	if err != nil {
		return nil, err
	}

	out := make([]ir.CatalogAtom, len(atoms))
	for i, a := range atoms {
		a.atom.Fields = fields[a.position]
		a.atom.Annotations = annotations[a.position]
		out[i] = a.atom
	}
	return out, nil
}

// FindAtom returns the chained atom with the given code.
func (s *Store) FindAtom(ctx context.Context, runID string, code int) (ir.CatalogAtom, error) {
	atoms, err := s.readAtomRows(ctx, `
		SELECT position, code, name, message, kind, primary_fields, exclusive_field,
		       default_state, trigger_state_reset, nested, restricted
		FROM atoms
		WHERE run_id = ? AND variant = ? AND code = ?
		ORDER BY position ASC
	`, runID, VariantChained, code)
	if err != nil {
		return ir.CatalogAtom{}, err
	}
	if len(atoms) == 0 {
		return ir.CatalogAtom{}, fmt.Errorf("find atom %d: %w", code, ErrNotFound)
	}

	// Loaded for the whole run; the catalog is small.
	fields, err := s.readFields(ctx, runID, VariantChained)
	if err != nil {
		return ir.CatalogAtom{}, err
	}
	annotations, err := s.readAnnotations(ctx, runID, VariantChained)
	if err != nil {
		return ir.CatalogAtom{}, err
	}

	a := atoms[0]
	a.atom.Fields = fields[a.position]
	a.atom.Annotations = annotations[a.position]
	return a.atom, nil
}

type atomRow struct {
	position int
	atom     ir.CatalogAtom
}

func (s *Store) readAtomRows(ctx context.Context, query string, args ...any) ([]atomRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query atoms: %w", err)
	}
	defer rows.Close()

	var out []atomRow
	for rows.Next() {
		var (
			r                          atomRow
			primary                    string
			defaultState, triggerReset sql.NullInt32
			nested, restricted         int
		)
		if err := rows.Scan(&r.position, &r.atom.Code, &r.atom.Name, &r.atom.Message, &r.atom.Kind,
			&primary, &r.atom.ExclusiveField, &defaultState, &triggerReset, &nested, &restricted); err != nil {
			return nil, fmt.Errorf("scan atom: %w", err)
		}
		if r.atom.PrimaryFields, err = unmarshalList[int]("primary fields", primary); err != nil {
			return nil, err
		}
		if defaultState.Valid {
			v := defaultState.Int32
			r.atom.DefaultState = &v
		}
		if triggerReset.Valid {
			v := triggerReset.Int32
			r.atom.TriggerStateReset = &v
		}
		r.atom.Nested = nested != 0
		r.atom.Restricted = restricted != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate atoms: %w", err)
	}
	return out, nil
}

// readFields returns the fields of every atom of a variant, keyed by atom
// position.
func (s *Store) readFields(ctx context.Context, runID, variant string) (map[int][]ir.CatalogField, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT atom_position, name, type, enum_type, enum_values
		FROM atom_fields
		WHERE run_id = ? AND variant = ?
		ORDER BY atom_position ASC, position ASC
	`, runID, variant)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]ir.CatalogField)
	for rows.Next() {
		var (
			pos    int
			f      ir.CatalogField
			values string
		)
		if err := rows.Scan(&pos, &f.Name, &f.Type, &f.EnumType, &values); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		if f.EnumValues, err = unmarshalList[ir.CatalogEnumValue]("enum values", values); err != nil {
			return nil, err
		}
		out[pos] = append(out[pos], f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fields: %w", err)
	}
	return out, nil
}

// readAnnotations returns the annotations of every atom of a variant,
// keyed by atom position and grouped by ascending field number.
func (s *Store) readAnnotations(ctx context.Context, runID, variant string) (map[int][]ir.CatalogFieldAnnotations, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT atom_position, field_number, annotation_id, name, type, value
		FROM annotations
		WHERE run_id = ? AND variant = ?
		ORDER BY atom_position ASC, field_number ASC, annotation_id ASC
	`, runID, variant)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]ir.CatalogFieldAnnotations)
	for rows.Next() {
		var (
			pos, field int
			ann        ir.CatalogAnnotation
			value      int64
		)
		if err := rows.Scan(&pos, &field, &ann.ID, &ann.Name, &ann.Type, &value); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		ann.Value = decodeAnnotationValue(ann.Type, value)

		groups := out[pos]
		if n := len(groups); n == 0 || groups[n-1].Field != field {
			groups = append(groups, ir.CatalogFieldAnnotations{Field: field})
		}
		last := &groups[len(groups)-1]
		last.Annotations = append(last.Annotations, ann)
		out[pos] = groups
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}
	return out, nil
}

// ReadSignatures returns the signature groups of one kind (ir.KindPushed,
// ir.KindPulled or ir.KindNonChained), in signature order.
func (s *Store) ReadSignatures(ctx context.Context, runID, kind string) ([]ir.CatalogSignature, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, types, members
		FROM signatures
		WHERE run_id = ? AND kind = ?
		ORDER BY position ASC
	`, runID, kind)
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}

	var sigs []ir.CatalogSignature
	for rows.Next() {
		var (
			pos            int
			types, members string
		)
		if err := rows.Scan(&pos, &types, &members); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		sig := ir.CatalogSignature{Kind: kind}
		if sig.Types, err = unmarshalList[string]("signature types", types); err != nil {
			rows.Close()
			return nil, err
		}
		if sig.Types == nil {
			sig.Types = []string{}
		}
		if sig.Members, err = unmarshalList[string]("signature members", members); err != nil {
			rows.Close()
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	// Closed before the next query; the pool holds a single connection.
	rows.Close()

	if len(sigs) == 0 {
		return nil, nil
	}

	fieldRows, err := s.db.QueryContext(ctx, `
		SELECT signature_position, field_number, atoms
		FROM signature_fields
		WHERE run_id = ? AND kind = ?
		ORDER BY signature_position ASC, field_number ASC
	`, runID, kind)
	if err != nil {
		return nil, fmt.Errorf("query signature fields: %w", err)
	}
	defer fieldRows.Close()

	for fieldRows.Next() {
		var (
			pos   int
			f     ir.CatalogSignatureField
			atoms string
		)
		if err := fieldRows.Scan(&pos, &f.Field, &atoms); err != nil {
			return nil, fmt.Errorf("scan signature field: %w", err)
		}
		if f.Atoms, err = unmarshalList[string]("signature field atoms", atoms); err != nil {
			return nil, err
		}
		if pos < 0 || pos >= len(sigs) {
			return nil, fmt.Errorf("signature field refers to missing signature %d", pos)
		}
		sigs[pos].Fields = append(sigs[pos].Fields, f)
	}
	if err := fieldRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signature fields: %w", err)
	}
	return sigs, nil
}
