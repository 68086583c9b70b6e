// Package semindex implements the Semantic Index (C4, spec §4.4): a local
// SQLite store of memories with lexical (FTS5-or-fallback), vector
// (chromem-go), and graph (memory_edges, traversed with
// github.com/dominikbraun/graph) retrieval, fused into a single hybrid
// ranking.
//
// Grounded on the teacher's modernc.org/sqlite-backed
// internal/storage/sqlite.go for the database wiring and
// internal/knowledge/vector_store.go for the chromem-go collection
// pattern. The teacher's knowledge-graph store is Neo4j-backed
// (internal/knowledge/graph_store.go); since spec.md's Non-goals keep
// Spark single-host and file-backed, graph expansion here instead reuses
// the teacher's other graph path, internal/modes/graph.go, built on the
// in-memory github.com/dominikbraun/graph library (see DESIGN.md).
package semindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/dominikbraun/graph"

	_ "modernc.org/sqlite"

	"unified-thinking/internal/embeddings"
)

const vectorCollection = "memories"

// Config configures an Index.
type Config struct {
	DBPath         string // "" or ":memory:" for an ephemeral in-memory DB
	VecPersistPath string // "" disables chromem-go persistence
	Embedder       embeddings.Embedder

	LexicalWeight float64
	VectorWeight  float64
	MMRLambda     float64
}

func (c *Config) setDefaults() {
	if c.LexicalWeight == 0 && c.VectorWeight == 0 {
		c.LexicalWeight = 0.6
		c.VectorWeight = 0.4
	}
	if c.MMRLambda == 0 {
		c.MMRLambda = 0.5
	}
}

// Memory is one indexed record (§3 "memories" row).
type Memory struct {
	ID         string
	Content    string
	Scope      string
	ProjectKey string
	Category   string
	CreatedAt  time.Time
	Source     string
	Meta       map[string]string
}

// Index is the C4 Semantic Index.
type Index struct {
	cfg      Config
	db       *sql.DB
	ftsOK    bool
	vecDB    *chromem.DB
	embedder embeddings.Embedder

	mu        sync.RWMutex
	edgeGraph graph.Graph[string, string]
	edgeDirty bool
}

// Open creates (or reopens) an Index at cfg.DBPath.
func Open(cfg Config) (*Index, error) {
	cfg.setDefaults()

	dsn := cfg.DBPath
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("semindex: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single-writer discipline, matches teacher's WAL-equivalent serialization note (§5)

	ftsOK, err := initSchema(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("semindex: init schema: %w", err)
	}

	var vecDB *chromem.DB
	if cfg.VecPersistPath != "" {
		vecDB, err = chromem.NewPersistentDB(cfg.VecPersistPath, false)
	} else {
		vecDB = chromem.NewDB()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("semindex: open vector db: %w", err)
	}

	idx := &Index{
		cfg:      cfg,
		db:       db,
		ftsOK:    ftsOK,
		vecDB:    vecDB,
		embedder: cfg.Embedder,
	}
	idx.edgeDirty = true
	return idx, nil
}

// Close releases the underlying SQLite connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// EmbeddingsAvailable reports whether a working embedder was configured.
func (idx *Index) EmbeddingsAvailable() bool {
	return idx.embedder != nil
}

// IndexMemory inserts or replaces a memory record, updating the lexical
// index and (when an embedder is configured) the vector collection.
// Embedding failures degrade gracefully to lexical-only retrieval for
// that record (§7 "C4 embedding failures degrade gracefully").
func (idx *Index) IndexMemory(ctx context.Context, m Memory) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	metaJSON, err := json.Marshal(m.Meta)
	if err != nil {
		return fmt.Errorf("semindex: marshal meta: %w", err)
	}

	_, err = idx.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, scope, project_key, category, created_at, source, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content=excluded.content, scope=excluded.scope, project_key=excluded.project_key,
			category=excluded.category, source=excluded.source, meta=excluded.meta
	`, m.ID, m.Content, m.Scope, m.ProjectKey, m.Category, m.CreatedAt.Unix(), m.Source, string(metaJSON))
	if err != nil {
		return fmt.Errorf("semindex: insert memory: %w", err)
	}

	if idx.ftsOK {
		if _, err := idx.db.ExecContext(ctx, `DELETE FROM memories_fts WHERE id = ?`, m.ID); err != nil {
			return fmt.Errorf("semindex: clear fts row: %w", err)
		}
		if _, err := idx.db.ExecContext(ctx, `INSERT INTO memories_fts (id, content) VALUES (?, ?)`, m.ID, m.Content); err != nil {
			return fmt.Errorf("semindex: insert fts row: %w", err)
		}
	}

	if idx.embedder != nil {
		collection, cerr := idx.getOrCreateCollection()
		if cerr == nil {
			vec, eerr := idx.embedder.Embed(ctx, m.Content)
			if eerr == nil {
				meta := map[string]string{"category": m.Category, "project_key": m.ProjectKey, "scope": m.Scope}
				_ = collection.AddDocument(ctx, chromem.Document{ID: m.ID, Content: m.Content, Metadata: meta, Embedding: vec})
			}
		}
	}

	return nil
}

// getOrCreateCollection returns the single vector collection used by the
// index, creating it on first use. chromem-go has no native
// get-or-create; the teacher's VectorStore wraps the same two calls.
func (idx *Index) getOrCreateCollection() (*chromem.Collection, error) {
	if c := idx.vecDB.GetCollection(vectorCollection, nil); c != nil {
		return c, nil
	}
	return idx.vecDB.CreateCollection(vectorCollection, nil, nil)
}

// AddEdge records a directed association between two memories (§4.4
// "memory_edges"), invalidating the cached traversal graph.
func (idx *Index) AddEdge(ctx context.Context, source, target string, weight float64, reason string) error {
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO memory_edges (source, target, weight, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source, target) DO UPDATE SET weight=excluded.weight, reason=excluded.reason
	`, source, target, weight, reason, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("semindex: insert edge: %w", err)
	}
	idx.mu.Lock()
	idx.edgeDirty = true
	idx.mu.Unlock()
	return nil
}

// Delete removes a memory, its FTS row and its edges. Its vector stays in
// the chromem-go collection (see below).
func (idx *Index) Delete(ctx context.Context, id string) error {
	if _, err := idx.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
		return err
	}
	if idx.ftsOK {
		if _, err := idx.db.ExecContext(ctx, `DELETE FROM memories_fts WHERE id = ?`, id); err != nil {
			return err
		}
	}
	if _, err := idx.db.ExecContext(ctx, `DELETE FROM memory_edges WHERE source = ? OR target = ?`, id, id); err != nil {
		return err
	}
	// chromem-go collections have no per-document delete; the stale vector
	// entry is harmless since retrieval always joins back against the
	// memories table and drops rows that no longer exist there.
	idx.mu.Lock()
	idx.edgeDirty = true
	idx.mu.Unlock()
	return nil
}
