package db

import "fmt"

// EmbeddingDimension must match the configured embedding model output size.
// It is interpolated into the HNSW index definition below.
const EmbeddingDimension = 1536

// SchemaSQL contains the database schema initialization SQL.
var SchemaSQL = fmt.Sprintf(`
    -- ==========================================================================
    -- JOB TABLE (deferred work, one per inbound message)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS sender ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS correlation_id ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS job_type ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS payload ON job TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS status ON job TYPE string DEFAULT "pending";
    DEFINE FIELD IF NOT EXISTS result ON job TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS error ON job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON job TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS job_sender ON job FIELDS sender;
    DEFINE INDEX IF NOT EXISTS job_status ON job FIELDS status;

    -- ==========================================================================
    -- RECORD TABLE (captured information, immutable after creation)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS record SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS sender ON record TYPE string;
    DEFINE FIELD IF NOT EXISTS correlation_id ON record TYPE string;
    DEFINE FIELD IF NOT EXISTS record_type ON record TYPE string;
    DEFINE FIELD IF NOT EXISTS text ON record TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON record TYPE option<array<float>>;
    DEFINE FIELD IF NOT EXISTS storage_urls ON record TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS metadata ON record TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON record TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS record_sender ON record FIELDS sender;
    DEFINE INDEX IF NOT EXISTS record_embedding ON record FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- MESSAGE TABLE (append-only conversation log)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS sender ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS direction ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS role ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS correlation_id ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS metadata ON message TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS message_sender ON message FIELDS sender;
`, EmbeddingDimension)
