package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const (
	// SampleToken is the bearer token stored by SampleState
	SampleToken = "tok-sample"
	// SampleThreadA is the selected thread of SampleState
	SampleThreadA = "01HZY3Q6XK4N8D0M2Z7R5T1AAA"
	// SampleThreadB is the second, older thread of SampleState
	SampleThreadB = "01HZY3Q6XK4N8D0M2Z7R5T1BBB"
)

// SampleState returns raw KV rows for a signed-in user with two threads
func SampleState() map[string]string {
	user := `{"id":"u1","email":"ada@example.com","firstName":"Ada","lastName":"Lovelace"}`
	return map[string]string{
		"libraToken":  SampleToken,
		"libraUser":   user,
		"mironUser":   user,
		"currentUser": user,
		"user":        user,
		"libraChats": `[` +
			`{"id":"` + SampleThreadA + `","name":"Lease dispute","date":"01.06.2024","messages":[` +
			`{"sender":"assistant","text":"Hello! How can I help you?"},` +
			`{"sender":"user","text":"Can my landlord keep the deposit?"},` +
			`{"sender":"assistant","text":"Only for documented damage."}]},` +
			`{"id":"` + SampleThreadB + `","name":"Chat 1","date":"31.05.2024","messages":[` +
			`{"sender":"assistant","text":"Hello! How can I help you?"}]}]`,
		"libraCurrentChatId": SampleThreadA,
	}
}

// CreateStateFixture writes SampleState into a SQLite file at dbPath
func CreateStateFixture(t *testing.T, dbPath string) {
	t.Helper()
	CreateKVFixture(t, dbPath, SampleState())
}

// CreateKVFixture writes rows into a SQLite file at dbPath
func CreateKVFixture(t *testing.T, dbPath string, rows map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS libraKV (
		key TEXT PRIMARY KEY,
		value TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	for key, value := range rows {
		if _, err := db.Exec("INSERT OR REPLACE INTO libraKV (key, value) VALUES (?, ?)", key, value); err != nil {
			t.Fatalf("Failed to insert %s: %v", key, err)
		}
	}
}
