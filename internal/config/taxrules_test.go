package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTaxRulesHolder_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewTaxRulesHolder(Config{}, zap.NewNop())
	require.NoError(t, err)

	rules := holder.Rules()
	assert.Equal(t, []string{"GST"}, rules.SplitCodePrefixes)
	assert.Equal(t, "CGST", rules.LocalComponentA)
	assert.Equal(t, "SGST", rules.LocalComponentB)
	assert.Equal(t, "IGST", rules.RemoteComponent)
}

func TestTaxRulesHolder_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxrules.yml")
	content := `tax:
  splitCodePrefixes: [gst, hst]
  splitName: HST
  labels:
    localComponentA: Federal
    localComponentB: Provincial
    remoteComponent: Harmonized
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewTaxRulesHolder(Config{TaxRulesFile: path}, zap.NewNop())
	require.NoError(t, err)

	rules := holder.Rules()
	assert.Equal(t, []string{"GST", "HST"}, rules.SplitCodePrefixes)
	assert.Equal(t, "HST", rules.SplitName)
	assert.Equal(t, "Federal", rules.LocalComponentA)
	assert.Equal(t, "Provincial", rules.LocalComponentB)
	assert.Equal(t, "Harmonized", rules.RemoteComponent)
	assert.Equal(t, "Tax", rules.DefaultSingleName)
}

func TestTaxRulesHolder_RejectsEmptyLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxrules.yml")
	content := `tax:
  labels:
    remoteComponent: ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewTaxRulesHolder(Config{TaxRulesFile: path}, zap.NewNop())
	assert.Error(t, err)
}
