package storage

const schema = `
-- The 'reviews' table is an append-only log of grading events.
CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    grade TEXT NOT NULL,
    quality INTEGER NOT NULL,
    interval_before INTEGER NOT NULL,
    interval_after INTEGER NOT NULL,
    ease_after REAL NOT NULL,
    hint_used INTEGER NOT NULL DEFAULT 0,
    reviewed_at DATETIME NOT NULL
);

-- The 'solves' table logs essay milestones: solved sentences and a
-- completed ordering.
CREATE TABLE IF NOT EXISTS solves (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stage TEXT NOT NULL,
    position INTEGER NOT NULL,
    solved_at DATETIME NOT NULL
);

-- The 'sources' table tracks where decks are synced from, either a local
-- directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    last_synced DATETIME
);

-- The 'imported_files' table remembers deck files already imported, so a
-- sync pass does not re-import unchanged content.
CREATE TABLE IF NOT EXISTS imported_files (
    hash TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    imported_at DATETIME NOT NULL
);
`
