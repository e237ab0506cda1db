// Package neo4j loads node and relationship tables straight into a Neo4j
// database with batched UNWIND ... MERGE statements, so a re-run updates the
// same nodes instead of duplicating them.
//
// Nodes are keyed by their id column. Rows of one table that share an id
// (person ids repeated in the input and kept under the warn policy) collapse
// into a single node whose properties come from the last such row; the sink
// logs a warning with the count when that happens.
package neo4j

import (
	"context"
	"fmt"
	"strings"

	neo "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"crashgraph/internal/crash"
	"crashgraph/internal/logging"
	"crashgraph/internal/transform"
	"crashgraph/sink"
)

// runner is the part of a transaction the sink needs.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

// session is the minimal interface needed from a neo4j session.
type session interface {
	ExecuteWrite(ctx context.Context, work func(tx runner) error) error
	Close(ctx context.Context) error
}

type driver struct {
	cfg    Config
	db     neo.DriverWithContext
	open   func(ctx context.Context) session // replaced in tests
	verify func(ctx context.Context) error

	constrained map[string]bool
	checked     bool
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("neo4j-sink: expected Config, got %T", raw)
	}
	applyDefaults(&c)
	d.cfg = c
	d.constrained = map[string]bool{}

	var err error
	d.db, err = neo.NewDriverWithContext(c.URI, neo.BasicAuth(c.Username, c.Password, ""))
	if err != nil {
		return fmt.Errorf("neo4j-sink: %w", err)
	}
	d.open = d.newSession
	d.verify = d.db.VerifyConnectivity
	return nil
}

func (d *driver) newSession(ctx context.Context) session {
	return &sessionAdapter{sess: d.db.NewSession(ctx, neo.SessionConfig{
		DatabaseName: d.cfg.Database,
		AccessMode:   neo.AccessModeWrite,
	})}
}

func (d *driver) Push(ctx context.Context, t *transform.Table) error {
	if !d.checked {
		if err := d.verify(ctx); err != nil {
			return d.writeErr(t, err)
		}
		d.checked = true
	}

	sess := d.open(ctx)
	defer sess.Close(ctx)

	var cypher string
	switch t.Kind {
	case transform.KindNode:
		if !d.cfg.SkipConstraints && !d.constrained[t.Label] {
			if err := sess.ExecuteWrite(ctx, func(tx runner) error {
				return tx.Run(ctx, constraintCypher(t), nil)
			}); err != nil {
				return d.writeErr(t, err)
			}
			d.constrained[t.Label] = true
		}
		cypher = nodeCypher(t)
		if n, err := repeatedKeys(t); err != nil {
			return err
		} else if n > 0 {
			logging.L().Warn("rows share a node key and will merge into one node",
				"table", t.Name, "label", t.Label, "key", t.Key, "merged_rows", n)
		}
	case transform.KindRelationship:
		cypher = relCypher(t)
	default:
		return fmt.Errorf("neo4j-sink: table %s has unknown kind %d", t.Name, t.Kind)
	}

	rows := params(t)
	for start := 0; start < len(rows); start += d.cfg.BatchSize {
		end := min(start+d.cfg.BatchSize, len(rows))
		batch := rows[start:end]
		if err := sess.ExecuteWrite(ctx, func(tx runner) error {
			return tx.Run(ctx, cypher, map[string]any{"rows": batch})
		}); err != nil {
			return d.writeErr(t, err)
		}
	}
	logging.L().Info("loaded table into neo4j", "table", t.Name, "label", t.Label, "rows", len(rows))
	return nil
}

func (d *driver) writeErr(t *transform.Table, err error) error {
	return &crash.OutputWriteError{Target: d.cfg.URI + "/" + t.Label, Err: err}
}

func (d *driver) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close(context.Background())
	d.db = nil
	return err
}

// params converts rows to UNWIND parameters; node rows drop transient
// foreign keys, which become relationships instead.
func params(t *transform.Table) []any {
	out := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			if t.Kind == transform.KindNode && t.IsTransient(c) {
				continue
			}
			m[c] = row[i]
		}
		out = append(out, m)
	}
	return out
}

// repeatedKeys counts rows whose key value already appeared earlier in t.
func repeatedKeys(t *transform.Table) (int, error) {
	if t.Len() == 0 {
		return 0, nil
	}
	keys, err := t.Column(t.Key)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(keys))
	n := 0
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			n++
			continue
		}
		seen[k] = struct{}{}
	}
	return n, nil
}

func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func constraintCypher(t *transform.Table) string {
	name := strings.ToLower(t.Label) + "_" + t.Key + "_unique"
	return fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
		quote(name), quote(t.Label), quote(t.Key))
}

func nodeCypher(t *transform.Table) string {
	return fmt.Sprintf("UNWIND $rows AS row MERGE (n:%s {%s: row.%s}) SET n += row",
		quote(t.Label), quote(t.Key), quote(t.Key))
}

func relCypher(t *transform.Table) string {
	return fmt.Sprintf("UNWIND $rows AS row "+
		"MATCH (a:%s {%s: row.%s}) "+
		"MATCH (b:%s {%s: row.%s}) "+
		"MERGE (a)-[:%s]->(b)",
		quote(t.From.Label), quote(t.From.Key), quote(t.From.Key),
		quote(t.To.Label), quote(t.To.Key), quote(t.To.Key),
		quote(t.Label))
}

// sessionAdapter adapts neo.SessionWithContext to the session interface.
type sessionAdapter struct {
	sess neo.SessionWithContext
}

func (a *sessionAdapter) ExecuteWrite(ctx context.Context, work func(tx runner) error) error {
	_, err := a.sess.ExecuteWrite(ctx, func(tx neo.ManagedTransaction) (any, error) {
		return nil, work(txAdapter{tx})
	})
	return err
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

type txAdapter struct {
	tx neo.ManagedTransaction
}

func (a txAdapter) Run(ctx context.Context, cypher string, params map[string]any) error {
	res, err := a.tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func init() {
	sink.Register("neo4j", func() sink.Adapter { return &driver{} })
}
