// Package sqlitestore provides an optional, persistent PolicyStore
// backed by modernc.org/sqlite. The donor repository declares this
// driver in go.mod but never imports it; this package is where it is
// exercised. Policies are stored as serialized YAML documents keyed by
// id, mirroring the donor's MemoryPolicyStore
// (internal/adapter/outbound/memory/policy_store.go) interface shape
// — GetAllPolicies/GetPolicy/SavePolicy/DeletePolicy — simplified to
// whole-policy CRUD since the engine loads entire policies, not
// individual rules, at a time.
//
// The core Engine itself stays in-memory; Store is an optional
// collaborator used by cmd/policyctl to persist and reload a working
// set of policies across process restarts.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/llm-dev-ops/policy-engine/pkg/policy"
)

const schema = `
CREATE TABLE IF NOT EXISTS policies (
	id         TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Store is a sqlite-backed collection of policies.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures its schema exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &policy.Error{Kind: policy.KindIo, Message: fmt.Sprintf("open sqlite store %s", path), Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &policy.Error{Kind: policy.KindIo, Message: "create sqlite schema", Err: err}
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePolicy upserts a single policy, serialized as YAML.
func (s *Store) SavePolicy(ctx context.Context, p policy.Policy) error {
	doc := policy.NewPolicyDocument(p)
	yamlText, err := doc.ToYAML()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO policies (id, document, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		p.ID, yamlText,
	)
	if err != nil {
		return &policy.Error{Kind: policy.KindIo, Message: fmt.Sprintf("save policy %q", p.ID), Err: err}
	}
	return nil
}

// GetPolicy returns the policy stored under id.
func (s *Store) GetPolicy(ctx context.Context, id string) (policy.Policy, error) {
	var yamlText string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM policies WHERE id = ?`, id).Scan(&yamlText)
	if err == sql.ErrNoRows {
		return policy.Policy{}, &policy.Error{Kind: policy.KindValidation, Message: fmt.Sprintf("policy %q not found", id), Policy: id}
	}
	if err != nil {
		return policy.Policy{}, &policy.Error{Kind: policy.KindIo, Message: fmt.Sprintf("get policy %q", id), Err: err}
	}

	doc, err := policy.FromYAML(yamlText)
	if err != nil {
		return policy.Policy{}, err
	}
	if len(doc.Policies) == 0 {
		return policy.Policy{}, &policy.Error{Kind: policy.KindInternal, Message: fmt.Sprintf("stored document for %q carries no policy", id)}
	}
	return doc.Policies[0], nil
}

// DeletePolicy removes the policy stored under id.
func (s *Store) DeletePolicy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return &policy.Error{Kind: policy.KindIo, Message: fmt.Sprintf("delete policy %q", id), Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &policy.Error{Kind: policy.KindIo, Message: "read rows affected", Err: err}
	}
	if n == 0 {
		return &policy.Error{Kind: policy.KindValidation, Message: fmt.Sprintf("policy %q not found", id), Policy: id}
	}
	return nil
}

// GetAllPolicies returns every stored policy.
func (s *Store) GetAllPolicies(ctx context.Context) ([]policy.Policy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM policies ORDER BY id`)
	if err != nil {
		return nil, &policy.Error{Kind: policy.KindIo, Message: "list policies", Err: err}
	}
	defer rows.Close()

	var out []policy.Policy
	for rows.Next() {
		var yamlText string
		if err := rows.Scan(&yamlText); err != nil {
			return nil, &policy.Error{Kind: policy.KindIo, Message: "scan policy row", Err: err}
		}
		doc, err := policy.FromYAML(yamlText)
		if err != nil {
			return nil, err
		}
		out = append(out, doc.Policies...)
	}
	if err := rows.Err(); err != nil {
		return nil, &policy.Error{Kind: policy.KindIo, Message: "iterate policy rows", Err: err}
	}
	return out, nil
}

// ToDocument collects every stored policy into a single PolicyDocument,
// ready for Engine.LoadDocument.
func (s *Store) ToDocument(ctx context.Context) (*policy.PolicyDocument, error) {
	policies, err := s.GetAllPolicies(ctx)
	if err != nil {
		return nil, err
	}
	return policy.NewPolicyDocument(policies...), nil
}
