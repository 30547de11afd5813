package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	pair TEXT NOT NULL,
	window_start INTEGER NOT NULL,
	window_end INTEGER NOT NULL,
	candles INTEGER NOT NULL,
	trades INTEGER NOT NULL,
	raw_trades INTEGER NOT NULL,
	pages INTEGER NOT NULL,
	stop_reason TEXT NOT NULL,
	csv_path TEXT NOT NULL,
	uploaded BOOLEAN NOT NULL,
	upload_target TEXT NOT NULL,
	upload_error TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS candles (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	pair TEXT NOT NULL,
	open_time INTEGER NOT NULL,
	close_time INTEGER NOT NULL,
	open TEXT NOT NULL,
	high TEXT NOT NULL,
	low TEXT NOT NULL,
	close TEXT NOT NULL,
	base_volume TEXT NOT NULL,
	quote_volume TEXT NOT NULL,
	trade_count INTEGER NOT NULL,
	PRIMARY KEY (run_id, open_time)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_candles_open ON candles(open_time);
`
