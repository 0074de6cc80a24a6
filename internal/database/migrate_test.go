package database

import (
	"database/sql"
	"os"
	"strings"
	"testing"

	_ "github.com/lib/pq"
)

// freshDB はスキーマを空にしたテスト用DBを返す。
// TEST_DATABASE_URL が未設定、または接続できない場合はスキップする。
func freshDB(t *testing.T) (*sql.DB, string) {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Ping(); err != nil {
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}

	_, err = db.Exec(`DROP TABLE IF EXISTS sessions, user_settings, users, schema_migrations CASCADE`)
	if err != nil {
		t.Fatalf("クリーンアップに失敗: %v", err)
	}
	return db, dbURL
}

func mustMigrate(t *testing.T, dbURL string) MigrationStatus {
	t.Helper()
	status, err := Migrate(dbURL)
	if err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	return status
}

func TestLatestVersion(t *testing.T) {
	got, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if got != 3 {
		t.Errorf("LatestVersion() = %d, want 3", got)
	}
}

func TestMigrate_InvalidURL(t *testing.T) {
	if _, err := Migrate("mysql://nope"); err == nil {
		t.Fatal("expected error for unsupported database scheme")
	}
}

func TestMigrate_ReportsVersion(t *testing.T) {
	_, dbURL := freshDB(t)
	latest, _ := LatestVersion()

	first := mustMigrate(t, dbURL)
	if first.Version != latest || !first.Changed || first.Dirty {
		t.Errorf("first run = %+v, want version %d changed clean", first, latest)
	}

	second := mustMigrate(t, dbURL)
	if second.Version != latest || second.Changed {
		t.Errorf("second run = %+v, want version %d unchanged", second, latest)
	}
}

func TestMigrator_DownDropsEverything(t *testing.T) {
	db, dbURL := freshDB(t)

	m, err := NewMigrator(dbURL)
	if err != nil {
		t.Fatalf("Migrator生成に失敗: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		t.Fatalf("Up に失敗: %v", err)
	}
	if err := m.Down(); err != nil {
		t.Fatalf("Down に失敗: %v", err)
	}

	var count int
	err = db.QueryRow(`
		SELECT count(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = ANY('{users,user_settings,sessions}')
	`).Scan(&count)
	if err != nil {
		t.Fatalf("テーブル数の取得に失敗: %v", err)
	}
	if count != 0 {
		t.Errorf("Down後に %d 個のテーブルが残存", count)
	}
}

type tableSchema struct {
	name       string
	columns    map[string]string
	primaryKey string
}

func TestMigrate_Schema(t *testing.T) {
	db, dbURL := freshDB(t)
	mustMigrate(t, dbURL)

	tables := []tableSchema{
		{
			name: "users",
			columns: map[string]string{
				"id":                   "uuid",
				"email":                "character varying",
				"password_hash":        "character varying",
				"onboarding_completed": "boolean",
				"created_at":           "timestamp with time zone",
			},
			primaryKey: "id",
		},
		{
			name: "user_settings",
			columns: map[string]string{
				"user_id":          "uuid",
				"selected_metrics": "jsonb",
				"updated_at":       "timestamp with time zone",
			},
			primaryKey: "user_id",
		},
		{
			name: "sessions",
			columns: map[string]string{
				"id":         "character varying",
				"token":      "text",
				"user_id":    "character varying",
				"email":      "character varying",
				"created_at": "timestamp with time zone",
			},
			primaryKey: "id",
		},
	}

	for _, tt := range tables {
		t.Run(tt.name+"のカラム", func(t *testing.T) {
			rows, err := db.Query(`
				SELECT column_name, data_type, is_nullable FROM information_schema.columns
				WHERE table_schema = 'public' AND table_name = $1
			`, tt.name)
			if err != nil {
				t.Fatalf("カラム情報取得に失敗: %v", err)
			}
			defer rows.Close()

			found := map[string]bool{}
			for rows.Next() {
				var name, dtype, nullable string
				if err := rows.Scan(&name, &dtype, &nullable); err != nil {
					t.Fatalf("スキャンに失敗: %v", err)
				}
				want, ok := tt.columns[name]
				if !ok {
					continue
				}
				found[name] = true
				if dtype != want {
					t.Errorf("%s.%s type = %q, want %q", tt.name, name, dtype, want)
				}
				if nullable != "NO" {
					t.Errorf("%s.%s should be NOT NULL", tt.name, name)
				}
			}
			for col := range tt.columns {
				if !found[col] {
					t.Errorf("%s.%s カラムが存在しません", tt.name, col)
				}
			}
		})

		t.Run(tt.name+"のプライマリキー", func(t *testing.T) {
			var pk string
			err := db.QueryRow(`
				SELECT kcu.column_name FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = 'public' AND tc.table_name = $1
			`, tt.name).Scan(&pk)
			if err != nil {
				t.Fatalf("PK取得に失敗: %v", err)
			}
			if pk != tt.primaryKey {
				t.Errorf("primary key = %q, want %q", pk, tt.primaryKey)
			}
		})
	}

	t.Run("sessions.user_idにインデックスがある", func(t *testing.T) {
		var defs []string
		rows, err := db.Query(`SELECT indexdef FROM pg_indexes WHERE schemaname = 'public' AND tablename = 'sessions'`)
		if err != nil {
			t.Fatalf("インデックス取得に失敗: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var def string
			rows.Scan(&def)
			defs = append(defs, def)
		}
		if !strings.Contains(strings.Join(defs, "\n"), "(user_id)") {
			t.Errorf("user_id index not found in %v", defs)
		}
	})
}

func TestMigrate_Constraints(t *testing.T) {
	db, dbURL := freshDB(t)
	mustMigrate(t, dbURL)

	var userID string
	var completed bool
	err := db.QueryRow(
		`INSERT INTO users (email, password_hash) VALUES ('default@test.com', 'x') RETURNING id, onboarding_completed`,
	).Scan(&userID, &completed)
	if err != nil {
		t.Fatalf("ユーザー挿入に失敗: %v", err)
	}

	t.Run("onboarding_completedの既定値はfalse", func(t *testing.T) {
		if completed {
			t.Error("onboarding_completed = true, want false")
		}
	})

	t.Run("selected_metricsの既定値は空配列", func(t *testing.T) {
		var metrics string
		err := db.QueryRow(
			`INSERT INTO user_settings (user_id) VALUES ($1) RETURNING selected_metrics::text`, userID,
		).Scan(&metrics)
		if err != nil {
			t.Fatalf("ユーザー設定挿入に失敗: %v", err)
		}
		if metrics != "[]" {
			t.Errorf("selected_metrics = %q, want []", metrics)
		}
	})

	t.Run("ユーザー削除で設定も削除される", func(t *testing.T) {
		if _, err := db.Exec(`DELETE FROM users WHERE id = $1`, userID); err != nil {
			t.Fatalf("ユーザー削除に失敗: %v", err)
		}
		var count int
		db.QueryRow(`SELECT count(*) FROM user_settings WHERE user_id = $1`, userID).Scan(&count)
		if count != 0 {
			t.Errorf("user_settings に %d 件残存", count)
		}
	})

	t.Run("メールアドレスは一意", func(t *testing.T) {
		if _, err := db.Exec(`INSERT INTO users (email, password_hash) VALUES ('dup@test.com', 'x')`); err != nil {
			t.Fatalf("1件目の挿入に失敗: %v", err)
		}
		if _, err := db.Exec(`INSERT INTO users (email, password_hash) VALUES ('dup@test.com', 'y')`); err == nil {
			t.Error("重複するemailの挿入がエラーにならなかった")
		}
	})
}
