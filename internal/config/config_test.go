package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/regwatch/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://www.federalregister.gov/api/v1", cfg.FederalRegister.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.FederalRegister.Timeout)
	assert.Equal(t, 1000, cfg.FederalRegister.PerPage)
	assert.Equal(t, "BOTH", cfg.Report.Agency)
	assert.Equal(t, 30, cfg.Report.Days)
	assert.Equal(t, 10, cfg.Report.MaxListed)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Server)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "0 7 * * 1", cfg.Schedule.Cron)
	assert.Equal(t, "8080", cfg.Server.Port)

	assert.Equal(t, []string{"BOTH", "CMS", "HHS"}, cfg.AgencyAliases())
	assert.Equal(t, []string{"centers-for-medicare-medicaid-services"}, cfg.AgencyMap()["CMS"])
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
agencies:
  FDA:
    - food-and-drug-administration
report:
  agency: FDA
  days: 14
logger:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "FDA", cfg.Report.Agency)
	assert.Equal(t, 14, cfg.Report.Days)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, []string{"food-and-drug-administration"}, cfg.AgencyMap()["FDA"])
	assert.Contains(t, cfg.AgencyAliases(), "FDA")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/regwatch")
	t.Setenv("PORT", "9090")
	t.Setenv("SMTP_USER", "alerts@example.com")
	t.Setenv("COMPLIANCE_EMAIL_TO", "a@example.com, b@example.com,")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("REPORT_DAYS", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@localhost/regwatch", cfg.Database.URL)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "alerts@example.com", cfg.SMTP.User)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.SMTP.Recipients())
	assert.Equal(t, "sk-test", cfg.Summarizer.APIKey)
	assert.Equal(t, 7, cfg.Report.Days)
}

func TestLoad_InvalidTypeMarker(t *testing.T) {
	path := writeConfig(t, `
type_markers:
  notice: Bogus
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Agencies:    map[string][]string{"HHS": {"health-and-human-services-department"}},
			TypeMarkers: map[string]string{"rule": "Final"},
			Report:      ReportConfig{Days: 30},
		}
	}

	assert.NoError(t, valid().Validate())

	noAgencies := valid()
	noAgencies.Agencies = nil
	assert.Error(t, noAgencies.Validate())

	emptySlugs := valid()
	emptySlugs.Agencies["CMS"] = nil
	assert.Error(t, emptySlugs.Validate())

	badDays := valid()
	badDays.Report.Days = 0
	assert.Error(t, badDays.Validate())
}

func TestNormalizerConfig(t *testing.T) {
	cfg := &Config{
		Agencies:    map[string][]string{"hhs": {"a"}, "Both": {"a", "b"}},
		TypeMarkers: map[string]string{"Final Rule": "Final", "prorule": "Proposed"},
	}

	nc := cfg.NormalizerConfig()
	assert.Equal(t, map[string]struct{}{"HHS": {}, "BOTH": {}}, nc.AgencyAliases)
	assert.Equal(t, map[string]model.DocType{
		"final rule": model.DocTypeFinal,
		"prorule":    model.DocTypeProposed,
	}, nc.TypeMarkers)

	cfg.TypeMarkers = nil
	assert.Equal(t, model.DefaultTypeMarkers(), cfg.NormalizerConfig().TypeMarkers)
}
