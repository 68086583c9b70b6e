package semindex

import "database/sql"

// baseSchema creates the core tables described in §4.4: memories,
// memories_vec (a raw-vector table that this package creates but never
// writes; vectors are kept in the chromem-go collection), and memory_edges. Grounded on the teacher's
// internal/storage/sqlite_schema.go migration-as-constant idiom.
const baseSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	scope TEXT NOT NULL DEFAULT '',
	project_key TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	meta TEXT
);

CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);
CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_key);

CREATE TABLE IF NOT EXISTS memories_vec (
	id TEXT PRIMARY KEY,
	dim INTEGER NOT NULL,
	vector BLOB NOT NULL,
	FOREIGN KEY(id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS memory_edges (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	weight REAL NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	PRIMARY KEY (source, target)
);

CREATE INDEX IF NOT EXISTS idx_memory_edges_source ON memory_edges(source);
`

// ftsSchema creates the FTS5 virtual table used for lexical scoring. Kept
// separate from baseSchema since FTS5 support is attempted and, on
// failure (older SQLite build), the index falls back to a keyword scan
// over the memories table itself (§4.4).
const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
	id UNINDEXED,
	content
);
`

func initSchema(db *sql.DB) (ftsAvailable bool, err error) {
	if _, err := db.Exec(baseSchema); err != nil {
		return false, err
	}
	if _, err := db.Exec(ftsSchema); err != nil {
		return false, nil
	}
	return true, nil
}
