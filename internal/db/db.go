package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func New(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		// Ensure directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	migrations := []string{
		migrationCompanyProfiles,
		migrationCampaigns,
		migrationDiscoveredPosts,
		migrationResponseDrafts,
		migrationCycleRecords,
		migrationCredentials,
		migrationContextSnippets,
		migrationAPITokens,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const migrationCompanyProfiles = `
CREATE TABLE IF NOT EXISTS company_profiles (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    voice TEXT,
    rules TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const migrationCampaigns = `
CREATE TABLE IF NOT EXISTS campaigns (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    company_id TEXT NOT NULL,
    name TEXT NOT NULL,
    platform TEXT NOT NULL,
    subreddits TEXT,
    keywords TEXT,
    monitoring_rules TEXT,
    engagement_rules TEXT,
    ai_settings TEXT,
    schedule_settings TEXT,
    status TEXT NOT NULL DEFAULT 'draft',
    last_execution TIMESTAMP,
    next_execution TIMESTAMP,
    execution_count INTEGER DEFAULT 0,
    error_message TEXT,
    started_at TIMESTAMP,
    stopped_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_campaigns_next_execution ON campaigns(next_execution);
`

const migrationDiscoveredPosts = `
CREATE TABLE IF NOT EXISTS discovered_posts (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    platform_post_id TEXT NOT NULL,
    subreddit TEXT,
    title TEXT,
    body TEXT,
    author TEXT,
    score INTEGER DEFAULT 0,
    num_comments INTEGER DEFAULT 0,
    permalink TEXT,
    matched_keyword TEXT,
    posted_at TIMESTAMP,
    discovered_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(campaign_id, platform_post_id)
);
CREATE INDEX IF NOT EXISTS idx_posts_campaign ON discovered_posts(campaign_id);
`

const migrationResponseDrafts = `
CREATE TABLE IF NOT EXISTS response_drafts (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    post_id TEXT NOT NULL UNIQUE REFERENCES discovered_posts(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    model TEXT,
    confidence REAL DEFAULT 0,
    sentiment REAL DEFAULT 0,
    engagement_potential REAL DEFAULT 1,
    priority TEXT DEFAULT 'low',
    status TEXT NOT NULL DEFAULT 'pending',
    context_snippets TEXT,
    platform_comment_id TEXT,
    posting_error TEXT,
    posted_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_drafts_campaign_status ON response_drafts(campaign_id, status);
CREATE INDEX IF NOT EXISTS idx_drafts_posted_at ON response_drafts(posted_at);
`

const migrationCycleRecords = `
CREATE TABLE IF NOT EXISTS cycle_records (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    started_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP NOT NULL,
    discovered INTEGER DEFAULT 0,
    generated INTEGER DEFAULT 0,
    posted INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    errors TEXT,
    next_execution TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_cycles_campaign ON cycle_records(campaign_id, started_at);
`

const migrationCredentials = `
CREATE TABLE IF NOT EXISTS credentials (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    platform TEXT NOT NULL,
    kind TEXT NOT NULL,
    value TEXT NOT NULL,
    valid INTEGER DEFAULT 1,
    expires_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(user_id, platform, kind)
);
`

const migrationContextSnippets = `
CREATE TABLE IF NOT EXISTS context_snippets (
    id TEXT PRIMARY KEY,
    company_id TEXT NOT NULL,
    source_type TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_snippets_company ON context_snippets(company_id);
`

const migrationAPITokens = `
CREATE TABLE IF NOT EXISTS api_tokens (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    token_hash TEXT NOT NULL,
    token_prefix TEXT NOT NULL,
    active INTEGER DEFAULT 1,
    last_used_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
