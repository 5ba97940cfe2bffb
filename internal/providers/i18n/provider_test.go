package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderDefinition(t *testing.T) {
	def := NewProvider(nil).Definition()
	assert.Equal(t, "i18n", def.ID)
	assert.Len(t, def.Tools, 5)
}

func TestProviderTools(t *testing.T) {
	dir := flatDir(t)
	p := NewProvider(nil)
	ctx := context.Background()

	out, err := p.Execute(ctx, "i18n.list_locales", map[string]interface{}{"localesDir": dir}, nil)
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, "Locales: de, en", out.Text)

	out, err = p.Execute(ctx, "i18n.set", map[string]interface{}{
		"localesDir": dir,
		"key":        "bye",
		"values":     map[string]interface{}{"de": "Tschüss"},
	}, nil)
	require.NoError(t, err)
	require.True(t, out.Success, out.Text)

	out, err = p.Execute(ctx, "i18n.get", map[string]interface{}{"localesDir": dir, "key": "bye"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "de: Tschüss\nen: Bye", out.Text)

	out, err = p.Execute(ctx, "i18n.missing", map[string]interface{}{"localesDir": dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, "de (1): app.greeting", out.Text)
	assert.Equal(t, 1, out.Data["total"])

	out, err = p.Execute(ctx, "i18n.delete", map[string]interface{}{"localesDir": dir, "key": "bye"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Deleted bye from de, en", out.Text)
}

func TestProviderErrors(t *testing.T) {
	p := NewProvider(nil)
	ctx := context.Background()

	out, err := p.Execute(ctx, "i18n.get", map[string]interface{}{}, nil)
	require.NoError(t, err)
	assert.False(t, out.Success)

	out, err = p.Execute(ctx, "i18n.set", map[string]interface{}{"localesDir": flatDir(t), "key": "x"}, nil)
	require.NoError(t, err)
	assert.False(t, out.Success)

	out, err = p.Execute(ctx, "i18n.nope", map[string]interface{}{"localesDir": flatDir(t)}, nil)
	require.NoError(t, err)
	assert.False(t, out.Success)
}
