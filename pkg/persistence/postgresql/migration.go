package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Planning sessions, stored whole. The graph and the
			-- per-check state live in JSONB documents on the row.
			CREATE TABLE sessions (
				id UUID PRIMARY KEY,
				plan_text TEXT NOT NULL,
				phase VARCHAR(20) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				baseline JSONB,
				has_changes BOOLEAN NOT NULL DEFAULT FALSE,
				check_count INT NOT NULL DEFAULT 0,
				annotations JSONB,
				insights JSONB,
				summary TEXT NOT NULL DEFAULT '',
				failure JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sessions_updated_at ON sessions(updated_at);
			CREATE INDEX idx_sessions_phase ON sessions(phase);
		`,
	}
}
