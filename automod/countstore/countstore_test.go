package countstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tiptune/tipmod/models"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCounts(ctx, PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c[models.ResultFlagged])
	assert.Equal(len(models.AllResults), len(c))

	assert.NoError(cs.Increment(ctx, models.ResultFlagged))
	assert.NoError(cs.Increment(ctx, models.ResultFlagged))
	assert.NoError(cs.Increment(ctx, models.ResultBlocked))

	for _, period := range AllPeriods {
		c, err = cs.GetCounts(ctx, period)
		assert.NoError(err)
		assert.Equal(2, c[models.ResultFlagged])
		assert.Equal(1, c[models.ResultBlocked])
		assert.Equal(0, c[models.ResultApproved])
	}

	assert.True(ValidPeriod(PeriodDay))
	assert.False(ValidPeriod("week"))
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	// Increment two different results from four goroutines, while reading from two more. Run this with `-race`.
	var wg sync.WaitGroup
	fnInc := func(result models.ModerationResult, times int) {
		defer wg.Done()
		for i := 0; i < times; i++ {
			assert.NoError(cs.Increment(ctx, result))
			time.Sleep(time.Nanosecond)
		}
	}
	fnRead := func(times int) {
		defer wg.Done()
		for i := 0; i < times; i++ {
			_, err := cs.GetCounts(ctx, PeriodTotal)
			assert.NoError(err)
			time.Sleep(time.Nanosecond)
		}
	}
	wg.Add(6)
	go fnInc(models.ResultApproved, 10)
	go fnInc(models.ResultApproved, 10)
	go fnRead(10)
	go fnInc(models.ResultFiltered, 6)
	go fnInc(models.ResultFiltered, 6)
	go fnRead(6)
	wg.Wait()

	c, err := cs.GetCounts(ctx, PeriodTotal)
	assert.NoError(err)
	assert.Equal(20, c[models.ResultApproved])
	assert.Equal(12, c[models.ResultFiltered])
}

func TestRedisCountStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	cs, err := NewRedisCountStore("redis://localhost:6379/0")
	if err != nil {
		t.Fatal(err)
	}

	before, err := cs.GetCounts(ctx, PeriodHour)
	assert.NoError(err)
	assert.NoError(cs.Increment(ctx, models.ResultFlagged))
	after, err := cs.GetCounts(ctx, PeriodHour)
	assert.NoError(err)
	assert.Equal(before[models.ResultFlagged]+1, after[models.ResultFlagged])
}
