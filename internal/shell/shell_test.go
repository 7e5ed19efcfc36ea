package shell

import (
	"testing"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/domain"
)

func testConfig() config.Deploy {
	return config.Deploy{
		Hosts:        []string{"web1"},
		DomainPath:   "/srv/app",
		ReleasesPath: "/srv/app/releases",
		SharedPath:   "/srv/app/shared",
		CurrentPath:  "/srv/app/current",
		GitClone:     "git@github.com:example/app.git",
		GitBranch:    "main",
		RemoteOwner:  "deploy",
		RemoteGroup:  "www-data",
	}
}

func TestCommands_Builtins(t *testing.T) {
	c := NewCommands(testConfig())
	rel := domain.NewRelease("/srv/app/releases", "20230101000000")
	prev := domain.NewRelease("/srv/app/releases", "20221231000000")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"mkdir layout", c.MkdirLayout(), "mkdir -p /srv/app/releases /srv/app/shared"},
		{"mkdir storage", c.MkdirStorage(), "mkdir -p /srv/app/releases /srv/app/shared"},
		{"chown", c.Chown(), "chown -R deploy:www-data /srv/app"},
		{"chmod", c.Chmod(), "chmod -R g+w /srv/app"},
		{
			"clone",
			c.Clone(rel),
			"cd /srv/app/releases && git clone -b main -q git@github.com:example/app.git /srv/app/releases/20230101000000 && cd /srv/app/releases/20230101000000 && rm -rf .git*",
		},
		{"link file", c.LinkFile(rel, "settings_local.py"), "ln -sf /srv/app/shared/settings_local.py /srv/app/releases/20230101000000/settings_local.py"},
		{"install", c.Install(rel, "pip install -r requirements.txt"), "cd /srv/app/releases/20230101000000 && pip install -r requirements.txt"},
		{
			"swap current",
			c.SwapCurrent(rel),
			"ln -sfn /srv/app/releases/20230101000000 /srv/app/current.20230101000000.tmp && mv -Tf /srv/app/current.20230101000000.tmp /srv/app/current",
		},
		{
			"rollback",
			c.Rollback(prev, rel),
			"ln -sfn /srv/app/releases/20221231000000 /srv/app/current.20221231000000.tmp && mv -Tf /srv/app/current.20221231000000.tmp /srv/app/current && rm -rf /srv/app/releases/20230101000000",
		},
		{"touch", c.Touch(rel.Path, "app.wsgi"), "touch /srv/app/releases/20230101000000/app.wsgi"},
		{"remove", c.Remove([]string{"/srv/app/releases/a", "/srv/app/releases/b"}), "rm -rf /srv/app/releases/a /srv/app/releases/b"},
		{"list", c.ListReleases(), "ls -1 /srv/app/releases"},
		{"readlink", c.ReadCurrent(), "readlink /srv/app/current"},
		{"sudo", Sudo("mkdir -p /srv/app"), "sudo -n sh -c 'mkdir -p /srv/app'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected:\n  %s\ngot:\n  %s", tt.expected, tt.got)
			}
		})
	}
}

func TestCommands_LinkDirOrder(t *testing.T) {
	c := NewCommands(testConfig())
	rel := domain.NewRelease("/srv/app/releases", "20230101000000")

	cmds := c.LinkDir(rel, "log")
	expected := []string{
		"mkdir -p /srv/app/releases/20230101000000/log",
		"rm -rf /srv/app/releases/20230101000000/log",
		"ln -s /srv/app/shared/log /srv/app/releases/20230101000000/log",
	}

	if len(cmds) != len(expected) {
		t.Fatalf("expected %d commands, got %d", len(expected), len(cmds))
	}
	for i := range expected {
		if cmds[i] != expected[i] {
			t.Errorf("command %d: expected %q, got %q", i, expected[i], cmds[i])
		}
	}
}

func TestCommands_QuotesUnsafePaths(t *testing.T) {
	cfg := testConfig()
	cfg.DomainPath = "/srv/my app"
	c := NewCommands(cfg)

	if got := c.Chmod(); got != "chmod -R g+w '/srv/my app'" {
		t.Errorf("path with space must be quoted, got %s", got)
	}

	if got := Sudo("echo 'hi'"); got != `sudo -n sh -c 'echo '"'"'hi'"'"''` {
		t.Errorf("unexpected sudo quoting: %s", got)
	}
}

func TestInstall_CommandVerbatim(t *testing.T) {
	c := NewCommands(testConfig())
	release := domain.NewRelease("/srv/app/releases", "20230101000000")

	// Пользовательская команда не разбирается как шаблон
	got := c.Install(release, "docker ps -q --format '{{.ID}}' | xargs -r docker restart")
	want := "cd /srv/app/releases/20230101000000 && docker ps -q --format '{{.ID}}' | xargs -r docker restart"
	if got != want {
		t.Errorf("Install() = %s, want %s", got, want)
	}
}
