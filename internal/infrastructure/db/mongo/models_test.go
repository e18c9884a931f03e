package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/studyon/billing/internal/core/domain"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "99.99", "123456789.5", "-3.25"} {
		d := decimal.RequireFromString(s)
		v, err := toDecimal128(d)
		require.NoError(t, err)
		back, err := fromDecimal128(v)
		require.NoError(t, err)
		assert.True(t, d.Equal(back), "value %s came back as %s", s, back)
	}
}

func TestTransactionDoc_OmitsEmptyOptionalFields(t *testing.T) {
	dep := domain.NewDeposit("acc-1", decimal.NewFromInt(10), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	doc, err := newTransactionDoc(dep)
	require.NoError(t, err)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.NotContains(t, m, "course_id")
	assert.NotContains(t, m, "expires_at")
}

func TestTransactionDoc_RentKeepsExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	course := &domain.Course{ID: "c-1", Type: domain.CourseRent, Cost: decimal.RequireFromString("9.99")}
	doc, err := newTransactionDoc(domain.NewPayment("acc-1", course, now))
	require.NoError(t, err)

	got, err := doc.toDomain()
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(now.Add(domain.RentDuration)))
	assert.Equal(t, "c-1", got.CourseID)
	assert.True(t, got.Amount.Equal(course.Cost))
}
