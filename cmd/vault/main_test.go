package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/daemon"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env.configPath, "config", "validate")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, "", "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIToken("hunter2"))

	out := mustRunCLI(t, env.configPath, "config", "show")
	if strings.Contains(out, "hunter2") {
		t.Fatalf("token leaked in config show output:\n%s", out)
	}
	requireContains(t, out, redacted)
	requireContains(t, out, env.cfg.Paths.MediaRoot)
}

func TestCategoriesLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env.configPath, "categories", "add", "Ana", "Lopez")
	requireContains(t, out, "Created category Ana Lopez")

	if _, _, err := runCLI(t, env.configPath, "categories", "add", "ana_lopez"); err == nil {
		t.Fatal("expected duplicate category to be rejected")
	}

	out = mustRunCLI(t, env.configPath, "categories", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[0] != "ID\tName\tMedia\tImages\tVideos\tPower\tStars" {
		t.Fatalf("unexpected listing:\n%s", out)
	}
	if !strings.Contains(lines[1], "\tAna Lopez\t0\t0\t0\t0\t0") {
		t.Fatalf("unexpected category row %q", lines[1])
	}

	out = mustRunCLI(t, env.configPath, "categories", "delete", "ana lopez")
	requireContains(t, out, "Deleted category Ana Lopez and 0 media item(s)")

	out = mustRunCLI(t, env.configPath, "categories", "list")
	requireContains(t, out, "No categories found")
}

func TestImportThenBrowse(t *testing.T) {
	env := setupCLITestEnv(t)

	src := filepath.Join(env.baseDir, "incoming")
	testsupport.WritePNG(t, filepath.Join(src, "one.png"), 640, 480)
	testsupport.WritePNG(t, filepath.Join(src, "nested", "two.png"), 32, 32)
	testsupport.WritePNG(t, filepath.Join(src, ".hidden", "three.png"), 32, 32)
	if err := os.WriteFile(filepath.Join(src, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := mustRunCLI(t, env.configPath, "import", src, "--category", "Ana Lopez")
	requireContains(t, out, "Imported into Ana Lopez: 2 saved, 0 duplicate, 0 failed")

	out = mustRunCLI(t, env.configPath, "import", src, "--category", "ana_lopez")
	requireContains(t, out, "0 saved, 2 duplicate")

	out = mustRunCLI(t, env.configPath, "--json", "stats", "ana")
	var stats catalog.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v\n%s", err, out)
	}
	if stats.Total != 2 || stats.Images != 2 || stats.RatedImages != 2 {
		t.Fatalf("unexpected stats %#v", stats)
	}

	_, stderr, err := runCLI(t, env.configPath, "latest", "--count", "9")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	requireContains(t, stderr, "Max count is 5")

	target := filepath.Join(t.TempDir(), "picked.png")
	out = mustRunCLI(t, env.configPath, "random", "ana lopez", "--output", target)
	requireContains(t, out, "image")
	if info, err := os.Stat(target); err != nil || info.Size() == 0 {
		t.Fatalf("expected copied media at %s: %v", target, err)
	}
}

func TestDeleteCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	ana := testsupport.NewCategory(t, store, "Ana", "ana")
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		testsupport.NewAsset(t, store, ana.ID, filepath.Join(env.cfg.Paths.MediaRoot, "ana", name), catalog.MediaImage)
	}

	out := mustRunCLI(t, env.configPath, "delete", "random", "ana", "--count", "2")
	requireContains(t, out, "Deleted 2 media item(s) from Ana")

	if _, _, err := runCLI(t, env.configPath, "delete", "all"); err == nil {
		t.Fatal("expected delete all without --confirm to fail")
	}
	out = mustRunCLI(t, env.configPath, "delete", "all", "--confirm")
	requireContains(t, out, "Deleted 1 media item(s); categories preserved")

	out = mustRunCLI(t, env.configPath, "delete", "random", "ana")
	requireContains(t, out, "No media found to delete for Ana")
}

func TestAmbiguousNameFails(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.NewCategory(t, store, "Alice Smith", "alice smith")
	testsupport.NewCategory(t, store, "Alice Jones", "alice jones")

	_, _, err := runCLI(t, env.configPath, "stats", "alice")
	if err == nil || err.Error() != "Multiple matches: Alice Jones, Alice Smith" {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
}

func TestMaintenanceCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	requireContains(t, mustRunCLI(t, env.configPath, "merge"), "No duplicate categories found")
	requireContains(t, mustRunCLI(t, env.configPath, "backfill"), "Scanned 0 image(s)")
	if _, _, err := runCLI(t, env.configPath, "scores", "refresh"); err == nil {
		t.Fatal("expected scores refresh to fail while scoring is disabled")
	}
}

func TestStatusQueriesDaemon(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIToken("secret"))
	store := testsupport.MustOpenStore(t, env.cfg)
	d, err := daemon.New(env.cfg, daemon.Dependencies{
		Store: store,
		Media: mediastore.NewLocal(env.cfg.Paths.MediaRoot),
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(d.Stop)

	out := mustRunCLI(t, env.configPath, "status", "--addr", d.Address())
	requireContains(t, out, "Running\tyes")
	requireContains(t, out, "Storage\tlocal")

	if _, _, err := runCLI(t, env.configPath, "status", "--addr", "127.0.0.1:1"); err == nil {
		t.Fatal("expected status to fail without a daemon")
	}
}
