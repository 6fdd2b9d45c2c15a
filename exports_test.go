package agentos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExports(t *testing.T) {
	d := desc("auth", ModuleTypeCore)
	d.Exports = []ExportSpec{
		{Name: "verify", Kind: ExportKindFunc},
		{Name: "issuer", Kind: ExportKindValue},
	}

	tests := []struct {
		name    string
		exports map[string]any
		wantErr error
	}{
		{
			name: "conforming surface",
			exports: map[string]any{
				"verify": func(token string) bool { return token != "" },
				"issuer": "https://auth.local",
			},
		},
		{
			name:    "missing accessor",
			exports: map[string]any{"issuer": "https://auth.local"},
			wantErr: ErrExportMissing,
		},
		{
			name: "nil accessor",
			exports: map[string]any{
				"verify": nil,
				"issuer": "https://auth.local",
			},
			wantErr: ErrExportNil,
		},
		{
			name: "declared func is a value",
			exports: map[string]any{
				"verify": "not callable",
				"issuer": "https://auth.local",
			},
			wantErr: ErrExportWrongKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &testModule{name: "auth", exports: tt.exports}
			err := ValidateExports(d, m)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateExportsNoDeclarations(t *testing.T) {
	// A descriptor declaring nothing passes regardless of the surface.
	m := &testModule{name: "plain"}
	assert.NoError(t, ValidateExports(desc("plain", ModuleTypeService), m))
}

func TestValidateExportsValueKindAcceptsFunc(t *testing.T) {
	// Kind value only asserts presence and non-nil; a func is still a value.
	d := desc("m", ModuleTypeService)
	d.Exports = []ExportSpec{{Name: "handler", Kind: ExportKindValue}}
	m := &testModule{name: "m", exports: map[string]any{"handler": func() {}}}
	assert.NoError(t, ValidateExports(d, m))
}
