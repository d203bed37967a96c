package datastore

// BooksSchemaSQLite creates the books table for the SQLite backend.
// The unique index on isbn is the authoritative duplicate guard; the
// pipeline's pre-check only exists for the friendlier message.
const BooksSchemaSQLite = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	cover TEXT NOT NULL DEFAULT '',
	isbn TEXT UNIQUE,
	status TEXT NOT NULL DEFAULT 'unread',
	category TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_books_status ON books(status);
CREATE INDEX IF NOT EXISTS idx_books_category ON books(category);
`

// BooksSchemaPostgres creates the books table for the Postgres backend.
const BooksSchemaPostgres = `
CREATE TABLE IF NOT EXISTS books (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	cover TEXT NOT NULL DEFAULT '',
	isbn TEXT UNIQUE,
	status TEXT NOT NULL DEFAULT 'unread',
	category TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_books_status ON books(status);
CREATE INDEX IF NOT EXISTS idx_books_category ON books(category);
`
