package pages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/waypoint/internal/navigation"
	"github.com/solatis/waypoint/internal/types"
)

func TestRegistry_CreateOrRestore(t *testing.T) {
	reg, err := NewRegistry(false,
		Page{ID: "/orders.xhtml", Params: []navigation.ViewParam{{Name: "id", Value: "#{order.id}"}}},
	)
	require.NoError(t, err)

	page, err := reg.CreateOrRestore(context.Background(), "/orders.xhtml")
	require.NoError(t, err)
	assert.Equal(t, "/orders.xhtml", page.PageID())
	assert.Equal(t, []navigation.ViewParam{{Name: "id", Value: "#{order.id}"}}, page.ViewParams())

	bare, err := reg.CreateOrRestore(context.Background(), "/other.xhtml")
	require.NoError(t, err)
	assert.Equal(t, "/other.xhtml", bare.PageID())
	assert.Empty(t, bare.ViewParams())
}

func TestRegistry_Strict(t *testing.T) {
	reg, err := NewRegistry(true, Page{ID: "/a.xhtml"})
	require.NoError(t, err)
	assert.True(t, reg.Strict())

	_, err = reg.CreateOrRestore(context.Background(), "/b.xhtml")
	assert.ErrorIs(t, err, types.ErrPageNotFound)

	_, err = reg.CreateOrRestore(context.Background(), "/a.xhtml")
	assert.NoError(t, err)
}

func TestNewRegistry_Errors(t *testing.T) {
	tests := []struct {
		name    string
		pages   []Page
		wantErr error
	}{
		{name: "empty id", pages: []Page{{ID: "  "}}, wantErr: types.ErrConfiguration},
		{name: "duplicate id", pages: []Page{{ID: "/a"}, {ID: "/a"}}, wantErr: types.ErrConfiguration},
		{
			name:    "reserved view param",
			pages:   []Page{{ID: "/a", Params: []navigation.ViewParam{{Name: "faces-redirect", Value: "x"}}}},
			wantErr: types.ErrReservedParameter,
		},
		{
			name:    "duplicate view param",
			pages:   []Page{{ID: "/a", Params: []navigation.ViewParam{{Name: "id"}, {Name: "id"}}}},
			wantErr: types.ErrDuplicateParameter,
		},
		{
			name:    "empty view param name",
			pages:   []Page{{ID: "/a", Params: []navigation.ViewParam{{Value: "x"}}}},
			wantErr: types.ErrEmptyParameterName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(false, tt.pages...)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}
}

func TestRegistry_LookupAndIDs(t *testing.T) {
	declared := []Page{{ID: "/b"}, {ID: "/a", Flow: "checkout"}}
	reg, err := NewRegistry(false, declared...)
	require.NoError(t, err)

	p, ok := reg.Lookup("/a")
	require.True(t, ok)
	assert.Equal(t, "checkout", p.Flow)

	_, ok = reg.Lookup("/c")
	assert.False(t, ok)

	assert.Equal(t, []string{"/a", "/b"}, reg.IDs())

	// registry owns its copies
	declared[1].Flow = "changed"
	p, _ = reg.Lookup("/a")
	assert.Equal(t, "checkout", p.Flow)
}
