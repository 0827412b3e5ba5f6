package main

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Audit trail for model exchanges. Rows store fingerprints and token counts,
// never raw student text. Auditing is best-effort: a failed insert logs and
// the request proceeds.
var auditDB *sql.DB

// initAuditDB opens the audit database and ensures the schema. An empty path
// disables auditing.
func initAuditDB(path string) error {
	if path == "" {
		log.Printf("[initAuditDB] Audit logging disabled")
		return nil
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS chat_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_sig TEXT NOT NULL,
		reply_sig TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		reply_tokens INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_audit_session ON chat_audit(session_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return err
	}

	auditDB = db
	log.Printf("[initAuditDB] Audit logging to %s", path)
	return nil
}

// auditExchange records one completed dispatch. Token counts fall back to
// local measurement when the provider reported no usage.
func auditExchange(sessionID, model, prompt, reply string, promptTokens, replyTokens int) {
	if auditDB == nil {
		return
	}

	if promptTokens == 0 {
		promptTokens = countTokens(prompt, model)
	}
	if replyTokens == 0 {
		replyTokens = countTokens(reply, model)
	}

	_, err := auditDB.Exec(
		`INSERT INTO chat_audit (session_id, model, prompt_sig, reply_sig, prompt_tokens, reply_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, model, generateSignature(prompt), generateSignature(reply),
		promptTokens, replyTokens, time.Now().UTC(),
	)
	if err != nil {
		log.Printf("[auditExchange] Failed to record exchange for session %s: %v", sessionID, err)
	}
}
