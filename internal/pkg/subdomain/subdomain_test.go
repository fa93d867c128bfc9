package subdomain

import (
	"testing"

	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "simple", raw: "acme", want: "acme"},
		{name: "uppercase folded", raw: "AcMe", want: "acme"},
		{name: "surrounding space trimmed", raw: "  acme  ", want: "acme"},
		{name: "digits and hyphen", raw: "agency-42", want: "agency-42"},
		{name: "empty", raw: "", wantErr: true},
		{name: "leading hyphen", raw: "-acme", wantErr: true},
		{name: "trailing hyphen", raw: "acme-", wantErr: true},
		{name: "inner dot", raw: "a.b", wantErr: true},
		{name: "underscore", raw: "a_b", wantErr: true},
		{name: "unicode", raw: "agència", wantErr: true},
		{name: "too long", raw: "a123456789012345678901234567890123456789012345678901234567890123", wantErr: true},
		{name: "reserved www", raw: "www", wantErr: true},
		{name: "reserved api uppercase", raw: "API", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromHost(t *testing.T) {
	const root = "qgchatting.com"

	tests := []struct {
		name   string
		host   string
		want   string
		wantOK bool
	}{
		{name: "tenant host", host: "acme.qgchatting.com", want: "acme", wantOK: true},
		{name: "with port", host: "acme.qgchatting.com:8443", want: "acme", wantOK: true},
		{name: "uppercase host", host: "ACME.QGChatting.com", want: "acme", wantOK: true},
		{name: "trailing dot", host: "acme.qgchatting.com.", want: "acme", wantOK: true},
		{name: "bare root", host: "qgchatting.com", wantOK: false},
		{name: "localhost", host: "localhost", wantOK: false},
		{name: "localhost with port", host: "localhost:8000", wantOK: false},
		{name: "foreign domain", host: "acme.example.com", wantOK: false},
		{name: "nested subdomain", host: "a.b.qgchatting.com", wantOK: false},
		{name: "reserved label", host: "www.qgchatting.com", wantOK: false},
		{name: "suffix without dot", host: "evilqgchatting.com", wantOK: false},
		{name: "empty", host: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromHost(tt.host, root)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFQDN(t *testing.T) {
	assert.Equal(t, "acme.qgchatting.com", FQDN("acme", "qgchatting.com"))
	assert.Equal(t, "acme.qgchatting.com", FQDN("acme", "qgchatting.com."))
}
