package scheduling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckck92/BLG-WEBSITE/internal/model"
)

var (
	haircut  = model.Service{ID: 1, Name: "Classic Haircut", Type: model.ServiceGeneral, CanBeBase: true, PriceCents: 15000, DurationMinutes: 45, IncludedAddons: []string{"Hot Towel"}, IsActive: true}
	fade     = model.Service{ID: 2, Name: "Skin Fade", Type: model.ServiceModernCut, CanBeBase: true, PriceCents: 25000, DurationMinutes: 60, IsActive: true}
	bossing  = model.Service{ID: 3, Name: "Boss Package", Type: model.ServiceBossing, CanBeBase: true, PriceCents: 80000, DurationMinutes: 90, IsActive: true}
	hotTowel = model.Service{ID: 4, Name: "Hot Towel", Type: model.ServiceAddon, PriceCents: 5000, DurationMinutes: 10, IsActive: true}
	beard    = model.Service{ID: 5, Name: "Beard Trim", Type: model.ServiceAddon, PriceCents: 7000, DurationMinutes: 15, IsActive: true}
	oddAddon = model.Service{ID: 6, Name: "Scalp Massage", Type: model.ServiceAddon, CanBeBase: true, PriceCents: 3000, IsActive: true}
)

func TestSummarizeSelection(t *testing.T) {
	tests := []struct {
		name    string
		in      []model.Service
		wantErr error
	}{
		{"empty", nil, ErrNoServices},
		{"addons only", []model.Service{beard}, ErrNoBaseService},
		{"addon flagged base never anchors", []model.Service{oddAddon}, ErrNoBaseService},
		{"two bases", []model.Service{haircut, fade}, ErrMultipleBase},
		{"bossing with addon", []model.Service{bossing, beard}, ErrBossingWithAddons},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SummarizeSelection(tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSummarizeSelectionRejectsIncludedAddon(t *testing.T) {
	_, err := SummarizeSelection([]model.Service{haircut, hotTowel})
	var inc *IncludedAddonError
	require.True(t, errors.As(err, &inc))
	assert.Equal(t, "Hot Towel", inc.Addon)
	assert.Equal(t, `"Hot Towel" is already included in Classic Haircut`, err.Error())
}

func TestSummarizeSelectionTotals(t *testing.T) {
	sel, err := SummarizeSelection([]model.Service{beard, fade, hotTowel})
	require.NoError(t, err)
	assert.Equal(t, fade.ID, sel.Base.ID)
	assert.Len(t, sel.Addons, 2)
	assert.Equal(t, int64(37000), sel.TotalPriceCents)
	assert.Equal(t, 85, sel.TotalDurationMinutes)
	assert.Equal(t, fade.ID, sel.Services()[0].ID)

	alone, err := SummarizeSelection([]model.Service{bossing})
	require.NoError(t, err)
	assert.NotNil(t, alone.Addons)
	assert.Empty(t, alone.Addons)
}

func TestAddonCandidates(t *testing.T) {
	inactive := beard
	inactive.ID, inactive.Name, inactive.IsActive = 9, "Old Addon", false
	all := []model.Service{hotTowel, beard, inactive}

	got := AddonCandidates(haircut, all)
	require.Len(t, got, 1)
	assert.Equal(t, beard.ID, got[0].ID)

	assert.Len(t, AddonCandidates(fade, all), 2)
	assert.Empty(t, AddonCandidates(bossing, all))
}
