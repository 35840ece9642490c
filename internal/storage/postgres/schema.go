package postgres

const schema = `
CREATE TABLE IF NOT EXISTS companies (
    domain               TEXT PRIMARY KEY,
    name                 TEXT NOT NULL DEFAULT '',
    company_status       TEXT NOT NULL DEFAULT 'fresh',
    company_suppressed   BOOLEAN NOT NULL DEFAULT FALSE,
    suppressed_reason    TEXT NOT NULL DEFAULT '',
    suppressed_at        TIMESTAMPTZ,
    contacts_total       INTEGER NOT NULL DEFAULT 0,
    contacts_in_sequence INTEGER NOT NULL DEFAULT 0 CHECK (contacts_in_sequence >= 0),
    contacts_touched     INTEGER NOT NULL DEFAULT 0,
    last_contact_date    TIMESTAMPTZ,
    company_cooldown_until TIMESTAMPTZ,
    is_customer          BOOLEAN NOT NULL DEFAULT FALSE,
    customer_since       TIMESTAMPTZ,
    client_owner_id      TEXT,
    client_owned_at      TIMESTAMPTZ,
    ownership_expires_at TIMESTAMPTZ,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (
        (client_owner_id IS NULL AND client_owned_at IS NULL AND ownership_expires_at IS NULL) OR
        (client_owner_id IS NOT NULL AND client_owned_at IS NOT NULL AND ownership_expires_at IS NOT NULL)
    )
);

CREATE TABLE IF NOT EXISTS contacts (
    email                   TEXT NOT NULL,
    client_id               TEXT NOT NULL,
    company_domain          TEXT NOT NULL REFERENCES companies(domain) ON DELETE CASCADE,
    first_name              TEXT NOT NULL DEFAULT '',
    last_name               TEXT NOT NULL DEFAULT '',
    last_known_title        TEXT NOT NULL DEFAULT '',
    last_known_company      TEXT NOT NULL DEFAULT '',
    disposition_status      TEXT NOT NULL DEFAULT 'fresh',
    disposition_updated_at  TIMESTAMPTZ,
    email_last_contacted    TIMESTAMPTZ,
    linkedin_last_contacted TIMESTAMPTZ,
    phone_last_contacted    TIMESTAMPTZ,
    email_cooldown_until    TIMESTAMPTZ,
    linkedin_cooldown_until TIMESTAMPTZ,
    phone_cooldown_until    TIMESTAMPTZ,
    email_suppressed        BOOLEAN NOT NULL DEFAULT FALSE,
    linkedin_suppressed     BOOLEAN NOT NULL DEFAULT FALSE,
    phone_suppressed        BOOLEAN NOT NULL DEFAULT FALSE,
    data_enriched_at        TIMESTAMPTZ,
    sequence_count          INTEGER NOT NULL DEFAULT 0 CHECK (sequence_count >= 0),
    source_system           TEXT NOT NULL DEFAULT '',
    source_id               TEXT NOT NULL DEFAULT '',
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (email, client_id)
);

CREATE TABLE IF NOT EXISTS disposition_history (
    id                TEXT PRIMARY KEY,
    contact_email     TEXT NOT NULL,
    contact_client_id TEXT NOT NULL,
    previous_status   TEXT,
    new_status        TEXT NOT NULL,
    transition_reason TEXT NOT NULL DEFAULT '',
    triggered_by      TEXT NOT NULL DEFAULT 'system',
    campaign_id       TEXT NOT NULL DEFAULT '',
    metadata          JSONB NOT NULL DEFAULT '{}',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS client_ownership (
    id                TEXT PRIMARY KEY,
    company_domain    TEXT NOT NULL REFERENCES companies(domain) ON DELETE CASCADE,
    previous_owner_id TEXT,
    new_owner_id      TEXT,
    change_reason     TEXT NOT NULL,
    changed_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS campaign_assignments (
    id                TEXT PRIMARY KEY,
    contact_email     TEXT NOT NULL,
    contact_client_id TEXT NOT NULL,
    campaign_id       TEXT NOT NULL,
    client_id         TEXT NOT NULL,
    channel           TEXT NOT NULL DEFAULT 'email',
    assigned_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at      TIMESTAMPTZ,
    outcome           TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tam_snapshots (
    id                   TEXT PRIMARY KEY,
    snapshot_date        DATE NOT NULL,
    client_id            TEXT,
    total_universe       INTEGER NOT NULL DEFAULT 0,
    never_touched        INTEGER NOT NULL DEFAULT 0,
    in_cooldown          INTEGER NOT NULL DEFAULT 0,
    available_now        INTEGER NOT NULL DEFAULT 0,
    permanent_suppress   INTEGER NOT NULL DEFAULT 0,
    in_sequence          INTEGER NOT NULL DEFAULT 0,
    won_customer         INTEGER NOT NULL DEFAULT 0,
    burn_rate_weekly     DOUBLE PRECISION,
    exhaustion_eta_weeks DOUBLE PRECISION,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- NULL client_id is the global snapshot; coalesce so it still upserts.
CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_scope
    ON tam_snapshots (snapshot_date, COALESCE(client_id, ''));

CREATE TABLE IF NOT EXISTS lead_pull_jobs (
    id                   TEXT PRIMARY KEY,
    client_id            TEXT NOT NULL,
    suggestion_id        TEXT NOT NULL DEFAULT '',
    volume               INTEGER NOT NULL DEFAULT 500,
    channel              TEXT NOT NULL DEFAULT 'email',
    enable_external      BOOLEAN NOT NULL DEFAULT TRUE,
    max_external_credits DOUBLE PRECISION NOT NULL DEFAULT 100.0,
    search_criteria      JSONB NOT NULL DEFAULT '{}',
    status               TEXT NOT NULL DEFAULT 'pending',
    started_at           TIMESTAMPTZ,
    completed_at         TIMESTAMPTZ,
    result_data          JSONB,
    error_message        TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_companies_status ON companies(company_status);
CREATE INDEX IF NOT EXISTS idx_companies_owner ON companies(client_owner_id);
CREATE INDEX IF NOT EXISTS idx_contacts_domain ON contacts(company_domain);
CREATE INDEX IF NOT EXISTS idx_contacts_status ON contacts(disposition_status);
CREATE INDEX IF NOT EXISTS idx_contacts_client ON contacts(client_id);
CREATE INDEX IF NOT EXISTS idx_contacts_enriched ON contacts(data_enriched_at);
CREATE INDEX IF NOT EXISTS idx_history_contact ON disposition_history(contact_email, contact_client_id);
CREATE INDEX IF NOT EXISTS idx_history_new_status ON disposition_history(new_status, created_at);
CREATE INDEX IF NOT EXISTS idx_assignments_contact ON campaign_assignments(contact_email, contact_client_id);
CREATE INDEX IF NOT EXISTS idx_assignments_campaign ON campaign_assignments(campaign_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON lead_pull_jobs(status, created_at);
`
