package main

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/BlackishOne/StudySync/core"
	"github.com/BlackishOne/StudySync/core/study"
	identitysvc "github.com/BlackishOne/StudySync/services/identity"
	logsvc "github.com/BlackishOne/StudySync/services/logger"
	dummysync "github.com/BlackishOne/StudySync/storage/database/dummy"
	statefile "github.com/BlackishOne/StudySync/storage/state"
)

func setup(t *testing.T) (*commandLine, string) {
	t.Helper()

	dir := t.TempDir()
	conf := &core.Config{Sync: core.SyncConfig{QueueSize: 16, MaxAttempts: 1}}
	session := identitysvc.NewSession(filepath.Join(dir, "session"))

	store, err := study.NewStore(
		statefile.New(filepath.Join(dir, "state.json")),
		dummysync.New(session),
		logsvc.NewConsoleLogger(log.New(io.Discard, "", 0)),
		conf,
	)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	return &commandLine{session: session, store: store}, dir
}

func testToken(t *testing.T) string {
	t.Helper()
	claims := identitysvc.Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   "3f1d2c44-9b75-4cab-9a21-2a3a5a6a7a8a",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
		Email: "awe@test.cd",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func Test_commandLine_help(t *testing.T) {
	cli, _ := setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: []string{"admin"}},
		{name: "unknown command", args: []string{"admin", "lol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(tt.args); err != errHelp {
				t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
			}
		})
	}
}

func Test_commandLine_migrateWithoutDB(t *testing.T) {
	cli, _ := setup(t)

	err := cli.run([]string{"admin", "migrate"})
	if err == nil || err.Error() != "no mirror database configured" {
		t.Errorf("cli.run() error = %v", err)
	}
}

func Test_commandLine_loginLogout(t *testing.T) {
	cli, _ := setup(t)
	token := testToken(t)

	readPasswordFunc = func(int) ([]byte, error) { return []byte(token), nil }
	if err := cli.run([]string{"admin", "login"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	uid, err := cli.session.CurrentUserID()
	if err != nil || uid != "3f1d2c44-9b75-4cab-9a21-2a3a5a6a7a8a" {
		t.Errorf("CurrentUserID() = %q, %v", uid, err)
	}

	if err = cli.run([]string{"admin", "logout"}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err = cli.session.CurrentUserID(); err != core.ErrNoIdentity {
		t.Errorf("CurrentUserID() after logout = %v, want ErrNoIdentity", err)
	}

	// empty token is rejected before anything is stored
	readPasswordFunc = func(int) ([]byte, error) { return nil, nil }
	if err = cli.run([]string{"admin", "login"}); err != errHelp {
		t.Errorf("login with empty token = %v, wantErr %v", err, errHelp)
	}
}

func Test_commandLine_exportImport(t *testing.T) {
	cli, dir := setup(t)
	path := filepath.Join(dir, "backup.json")

	cli.store.AddCourse(study.Course{ID: "c1", Name: "Calculus", Credits: 3})

	if err := cli.run([]string{"admin", "export"}); err != errHelp {
		t.Errorf("export without -file = %v, wantErr %v", err, errHelp)
	}

	if err := cli.run([]string{"admin", "export", "-file", path}); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	var snap study.Snapshot
	if err = json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("decoding backup: %v", err)
	}
	if len(snap.Courses) != 1 || snap.Courses[0].Name != "Calculus" {
		t.Errorf("snapshot = %+v", snap)
	}

	// wipe, then restore from the backup
	cli.store.DeleteCourse("c1")
	if err = cli.run([]string{"admin", "import", "-file", path}); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if got := cli.store.Courses(); len(got) != 1 || got[0].Name != "Calculus" {
		t.Errorf("Courses() after import = %v", got)
	}

	// corrupt file
	if err = os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err = cli.run([]string{"admin", "import", "-file", path}); err == nil {
		t.Error("import of corrupt file = nil error, want parse error")
	}
}

func Test_commandLine_syncNotLoggedIn(t *testing.T) {
	cli, _ := setup(t)

	// not logged in: reconciliation is a silent no-op
	if err := cli.run([]string{"admin", "sync"}); err != nil {
		t.Errorf("sync = %v, want nil", err)
	}
}
