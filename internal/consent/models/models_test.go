package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complyscan/pkg/domain"
)

func TestSelectActive(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("no records", func(t *testing.T) {
		rec, stale := SelectActive(nil, domain.ConsentPurposeAudit)
		assert.Nil(t, rec)
		assert.Zero(t, stale)
	})

	t.Run("ignores inactive and other purposes", func(t *testing.T) {
		records := []ConsentRecord{
			{ID: "1", Purpose: domain.ConsentPurposeAudit, GrantedAt: base, Active: false},
			{ID: "2", Purpose: domain.ConsentPurpose("marketing"), GrantedAt: base, Active: true},
		}
		rec, _ := SelectActive(records, domain.ConsentPurposeAudit)
		assert.Nil(t, rec)
	})

	t.Run("picks most recently granted and counts stale", func(t *testing.T) {
		records := []ConsentRecord{
			{ID: "old", Purpose: domain.ConsentPurposeAudit, GrantedAt: base, Active: true},
			{ID: "new", Purpose: domain.ConsentPurposeAudit, GrantedAt: base.Add(time.Hour), Active: true},
			{ID: "mid", Purpose: domain.ConsentPurposeAudit, GrantedAt: base.Add(time.Minute), Active: true},
		}
		rec, stale := SelectActive(records, domain.ConsentPurposeAudit)
		require.NotNil(t, rec)
		assert.Equal(t, "new", rec.ID)
		assert.Equal(t, 2, stale)
	})

	t.Run("ties resolve by id regardless of order", func(t *testing.T) {
		a := ConsentRecord{ID: "a", Purpose: domain.ConsentPurposeAudit, GrantedAt: base, Active: true}
		b := ConsentRecord{ID: "b", Purpose: domain.ConsentPurposeAudit, GrantedAt: base, Active: true}

		first, _ := SelectActive([]ConsentRecord{a, b}, domain.ConsentPurposeAudit)
		second, _ := SelectActive([]ConsentRecord{b, a}, domain.ConsentPurposeAudit)
		assert.Equal(t, "b", first.ID)
		assert.Equal(t, "b", second.ID)
	})
}
