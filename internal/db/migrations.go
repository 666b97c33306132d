package db

type migration struct {
	version int
	name    string
	up      string
}

var migrations = []migration{
	{
		version: 1,
		name:    "death_events",
		up: `
			CREATE TABLE death_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id TEXT NOT NULL,
				session_started_at TEXT NOT NULL,
				occurred_at TEXT NOT NULL,
				player_name TEXT NOT NULL
			);
			CREATE INDEX idx_death_events_session ON death_events(session_id, id);
		`,
	},
	{
		version: 2,
		name:    "events",
		up: `
			CREATE TABLE events (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				timestamp TEXT NOT NULL,
				type TEXT NOT NULL,
				session_id TEXT NOT NULL,
				payload_json TEXT
			);
			CREATE INDEX idx_events_type ON events(type, seq);
			CREATE INDEX idx_events_session ON events(session_id, seq);
		`,
	},
}
