package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coloft/internal/recurrence"
)

func TestLoad_FirstRunWritesDefault(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/etc/coloft/nested/coloft.yaml"

	cfg, err := Load(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.HorizonMonths)
	assert.Equal(t, 3, cfg.MaxCount)

	info, err := fsys.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	leftovers, err := afero.Glob(fsys, "/etc/coloft/nested/.coloft-config-*")
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	again, err := Load(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Events, again.Events)
	assert.Equal(t, 10*time.Second, again.LinkCheck.Timeout)
}

func TestLoad_ParsesEventsAndNormalizes(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "coloft.yaml"
	require.NoError(t, afero.WriteFile(fsys, path, []byte(`
output_dir: public
horizon_months: 6
link_check:
  timeout: 3s
events:
  saturday-jam:
    name: Saturday Jam
    rule: every-other-saturday
    anchor: "2026-01-24"
  spf:
    rule: every-tuesday
    start: "2026-01-13"
`), 0o600))

	cfg, err := Load(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, "site", DefaultConfig().OutputDir)
	assert.Equal(t, 6, cfg.HorizonMonths)
	assert.Equal(t, 3, cfg.MaxCount)
	assert.Equal(t, 3*time.Second, cfg.LinkCheck.Timeout)
	assert.Zero(t, cfg.LinkCheck.Delay)
	assert.Len(t, cfg.States, 2)

	s, err := cfg.Schedule()
	require.NoError(t, err)
	assert.Equal(t, []string{"saturday-jam", "spf"}, s.IDs())

	e, ok := s.Entry("spf")
	require.True(t, ok)
	assert.Equal(t, "spf", e.Name)

	got, err := s.UpcomingOccurrences("spf", day("2026-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-13", got[0].String())

	next, err := s.NextOccurrence("saturday-jam", day("2026-02-01"))
	require.NoError(t, err)
	assert.Equal(t, "2026-02-07", next.MustGet().String())
}

func TestSchedule_InvalidRule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Events["bad"] = EventConfig{RuleDescriptor: recurrence.RuleDescriptor{Rule: "every-other-friday"}}
	_, err := cfg.Schedule()
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)

	cfg = DefaultConfig()
	cfg.HorizonMonths = -1
	_, err = cfg.Schedule()
	assert.ErrorIs(t, err, recurrence.ErrInvalidWindow)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvConfigPath, "/etc/coloft.yaml")

	cfg, err := Load(afero.NewMemMapFs(), "coloft.yaml")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/etc/coloft.yaml", PathFromEnv(DefaultConfigPath))
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "")
	assert.Error(t, err)

	assert.Error(t, Save(afero.NewMemMapFs(), "coloft.yaml", nil))
}

func TestSave_RoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cfg := DefaultConfig()
	cfg.OutputDir = "public"
	cfg.Events["jam"] = EventConfig{
		Name:           "Jam",
		RuleDescriptor: recurrence.RuleDescriptor{Rule: "every-tuesday"},
	}
	require.NoError(t, Save(fsys, "conf/coloft.yaml", cfg))

	got, err := Load(fsys, "conf/coloft.yaml")
	require.NoError(t, err)
	assert.Equal(t, "public", got.OutputDir)
	assert.Equal(t, "Jam", got.Events["jam"].Name)
}

func TestLoad_BasicAuthAndBaseURL(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "coloft.yaml"
	require.NoError(t, afero.WriteFile(fsys, path, []byte(`
base_url: https://coloft.example/
basic_auth:
  username: admin
  password_hash: '$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA'
`), 0o600))

	cfg, err := Load(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, "https://coloft.example/", cfg.BaseURL)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
	assert.Equal(t, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", cfg.BasicAuth.PasswordHash)

	assert.Nil(t, DefaultConfig().BasicAuth)
}

// day parses a YYYY-MM-DD literal.
func day(s string) recurrence.Date {
	d, err := recurrence.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
