package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
hosts:
  - deploy@web1.example.com:2222
  - web2.example.com
domain_path: /srv/app/
git_clone: git@github.com:example/app.git
shared_dirs: [log, media]
shared_files: [settings_local.py]
wsgi_path: app.wsgi
use_sudo: false
max_releases: 3
pip_install_command: ""
schedules:
  - name: nightly-cleanup
    task: cleanup
    cron: "0 3 * * *"
`

func TestParseAndNew_Sample(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("RABBITMQ_URL", "")

	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	d, err := New(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(d.Hosts) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(d.Hosts))
	}
	if d.DomainPath != "/srv/app" {
		t.Errorf("domain_path should be cleaned, got %q", d.DomainPath)
	}
	if d.ReleasesPath != "/srv/app/releases" {
		t.Errorf("unexpected releases_path: %s", d.ReleasesPath)
	}
	if d.SharedPath != "/srv/app/shared" {
		t.Errorf("unexpected shared_path: %s", d.SharedPath)
	}
	if d.CurrentPath != "/srv/app/current" {
		t.Errorf("unexpected current_path: %s", d.CurrentPath)
	}
	if d.GitBranch != DefaultGitBranch {
		t.Errorf("expected default branch, got %s", d.GitBranch)
	}
	if d.UseSudo {
		t.Error("use_sudo: false should be respected")
	}
	if d.MaxReleases != 3 {
		t.Errorf("expected max_releases 3, got %d", d.MaxReleases)
	}
	// Явно пустая команда не заменяется значением по умолчанию
	if d.PipInstallCommand != "" {
		t.Errorf("explicit empty pip_install_command should be kept, got %q", d.PipInstallCommand)
	}
	if d.RemoteOwner != DefaultOwner || d.RemoteGroup != DefaultOwner {
		t.Errorf("unexpected owner/group: %s:%s", d.RemoteOwner, d.RemoteGroup)
	}
	if d.Timeout != DefaultTimeoutSec*time.Second {
		t.Errorf("unexpected timeout: %s", d.Timeout)
	}
	if len(d.Schedules) != 1 || d.Schedules[0].Task != "cleanup" {
		t.Errorf("unexpected schedules: %+v", d.Schedules)
	}
	if !d.SSH.AgentEnabled() {
		t.Error("ssh-agent should be enabled by default")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "postgresql://localhost/strano")
	t.Setenv("RABBITMQ_URL", "amqp://localhost/")

	d, err := New(File{Hosts: []string{"web1"}, DomainPath: "/srv/app"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !d.UseSudo {
		t.Error("use_sudo should default to true")
	}
	if d.MaxReleases != DefaultMaxReleases {
		t.Errorf("expected %d, got %d", DefaultMaxReleases, d.MaxReleases)
	}
	if d.PipInstallCommand != DefaultPipInstallCommand {
		t.Errorf("unexpected install command: %s", d.PipInstallCommand)
	}
	if d.Parallelism != 1 {
		t.Errorf("expected sequential execution by default, got %d", d.Parallelism)
	}
	if !d.HasHistory() || d.History.DSN != "postgresql://localhost/strano" {
		t.Errorf("history DSN should come from DB_URL, got %q", d.History.DSN)
	}
	if !d.HasNotify() {
		t.Error("notify URL should come from RABBITMQ_URL")
	}
}

func TestNew_CopiesSlices(t *testing.T) {
	f := File{Hosts: []string{"web1"}, DomainPath: "/srv/app", SharedDirs: []string{"log"}}
	d, err := New(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.Hosts[0] = "other"
	f.SharedDirs[0] = "tmp"

	if d.Hosts[0] != "web1" || d.SharedDirs[0] != "log" {
		t.Error("Deploy must not share slices with File")
	}
}

func TestValidate_Errors(t *testing.T) {
	zero := 0

	tests := []struct {
		name string
		file File
		want error
	}{
		{"no hosts", File{DomainPath: "/srv/app"}, ErrNoHosts},
		{"blank host", File{Hosts: []string{" "}, DomainPath: "/srv/app"}, ErrNoHosts},
		{"no domain", File{Hosts: []string{"web1"}}, ErrNoDomainPath},
		{"relative domain", File{Hosts: []string{"web1"}, DomainPath: "srv/app"}, ErrRelativePath},
		{"relative current", File{Hosts: []string{"web1"}, DomainPath: "/srv/app", CurrentPath: "current"}, ErrRelativePath},
		{"absolute shared dir", File{Hosts: []string{"web1"}, DomainPath: "/srv/app", SharedDirs: []string{"/log"}}, ErrInvalidSharedPath},
		{"escaping shared file", File{Hosts: []string{"web1"}, DomainPath: "/srv/app", SharedFiles: []string{"../etc/passwd"}}, ErrInvalidSharedPath},
		{"zero max releases", File{Hosts: []string{"web1"}, DomainPath: "/srv/app", MaxReleases: &zero}, ErrInvalidMaxReleases},
		{"bad schedule", File{Hosts: []string{"web1"}, DomainPath: "/srv/app", Schedules: []Schedule{{Name: "x"}}}, ErrInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.file)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(filename, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := Load(filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.WSGIPath != "app.wsgi" {
		t.Errorf("unexpected wsgi_path: %s", d.WSGIPath)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("hosts: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
}
